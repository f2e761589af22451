package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/tripweaver/tripweaver/internal/chat"
	"github.com/tripweaver/tripweaver/store"
)

const defaultSessionTitle = "New Chat"

// tokenDelay paces word streaming so the client renders progressively even
// though the full answer is already known.
const tokenDelay = 8 * time.Millisecond

type chatRequest struct {
	Content string `json:"content"`
}

type sessionRequest struct {
	Title string `json:"title"`
}

type sessionResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

type messageResponse struct {
	ID        int32  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedTs int64  `json:"createdTs"`
}

func (s *APIV1Service) registerChatRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/sessions", s.listSessions)
	g.POST("/sessions", s.createSession)
	g.PATCH("/sessions/:uid", s.updateSession)
	g.DELETE("/sessions/:uid", s.deleteSession)
	g.GET("/sessions/:uid/messages", s.listMessages)
	g.POST("/sessions/:uid/chat", s.handleChat)
}

func (s *APIV1Service) listSessions(c *echo.Context) error {
	sessions, err := s.Store.ListChatSessions(c.Request().Context(), &store.FindChatSession{})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, toSessionResponse(sess))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) createSession(c *echo.Context) error {
	var req sessionRequest
	if err := c.Bind(&req); err != nil {
		req.Title = defaultSessionTitle
	}
	if req.Title == "" {
		req.Title = defaultSessionTitle
	}
	sess, err := s.Store.CreateChatSession(c.Request().Context(), &store.ChatSession{
		UID:   uuid.New().String()[:8],
		Title: req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (s *APIV1Service) updateSession(c *echo.Context) error {
	uid := c.Param("uid")
	sess, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{UID: &uid})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	var req sessionRequest
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title required")
	}
	updated, err := s.Store.UpdateChatSession(c.Request().Context(), &store.UpdateChatSession{
		UID:   uid,
		Title: &req.Title,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toSessionResponse(updated))
}

func (s *APIV1Service) deleteSession(c *echo.Context) error {
	uid := c.Param("uid")
	sess, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{UID: &uid})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err := s.Store.DeleteChatSession(c.Request().Context(), uid); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *APIV1Service) listMessages(c *echo.Context) error {
	uid := c.Param("uid")
	sess, err := s.Store.GetChatSession(c.Request().Context(), &store.FindChatSession{UID: &uid})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	msgs, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{SessionID: sess.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			CreatedTs: m.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// handleChat answers one user message over SSE. Events: cache, token,
// source, error, done.
func (s *APIV1Service) handleChat(c *echo.Context) error {
	uid := c.Param("uid")

	var req chatRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content required")
	}

	ctx := c.Request().Context()

	sess, err := s.Store.GetChatSession(ctx, &store.FindChatSession{UID: &uid})
	if err != nil || sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	dbMsgs, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{SessionID: sess.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	history := historyFromStored(sess, dbMsgs)

	rw := c.Response()
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")
	rw.Header().Set("X-Accel-Buffering", "no")
	rw.WriteHeader(http.StatusOK)

	emit := func(eventType, payload string) {
		data, _ := json.Marshal(map[string]string{"type": eventType, "content": payload})
		fmt.Fprintf(rw, "data: %s\n\n", data)
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
	}
	emitJSON := func(eventType string, obj any) {
		inner, _ := json.Marshal(obj)
		data, _ := json.Marshal(map[string]json.RawMessage{
			"type":    json.RawMessage(`"` + eventType + `"`),
			"payload": inner,
		})
		fmt.Fprintf(rw, "data: %s\n\n", data)
		if f, ok := rw.(http.Flusher); ok {
			f.Flush()
		}
	}

	if len(dbMsgs) == 0 && sess.Title == defaultSessionTitle {
		go s.autoTitleSession(context.Background(), sess.UID, req.Content)
	}

	answer, err := s.Engine.Answer(ctx, req.Content, history)
	if err != nil {
		slog.Error("chat answer failed", "session", uid, "err", err)
		emit("error", "Sorry, I could not generate an answer right now. Please try again.")
		emit("done", uid)
		return nil
	}

	emitJSON("cache", map[string]any{
		"hit":        answer.CacheHit,
		"similarity": answer.HitSimilarity,
	})

	for _, word := range strings.Fields(answer.Response) {
		emit("token", word+" ")
		time.Sleep(tokenDelay)
	}

	for _, src := range answer.Sources {
		emitJSON("source", map[string]any{
			"id":    src.ID,
			"name":  src.Name,
			"type":  src.Type,
			"score": src.Score,
		})
	}

	s.persistExchange(ctx, sess, answer)

	emit("done", uid)
	return nil
}

// persistExchange writes the turn to storage. When compaction ran the stored
// history is rewritten: the summary moves onto the session and only the kept
// turns survive as messages.
func (s *APIV1Service) persistExchange(ctx context.Context, sess *store.ChatSession, answer *chat.Answer) {
	if answer.Compacted && len(answer.History) > 0 && answer.History[0].Role == chat.RoleSummary {
		summary := answer.History[0].Text
		if _, err := s.Store.UpdateChatSession(ctx, &store.UpdateChatSession{UID: sess.UID, Summary: &summary}); err != nil {
			slog.Warn("failed to store session summary", "session", sess.UID, "err", err)
		}
		if err := s.Store.DeleteChatMessages(ctx, sess.ID); err != nil {
			slog.Warn("failed to rewrite compacted history", "session", sess.UID, "err", err)
			return
		}
		for _, t := range answer.History[1:] {
			if _, err := s.Store.CreateChatMessage(ctx, &store.CreateChatMessage{
				SessionID: sess.ID,
				Role:      string(t.Role),
				Content:   t.Text,
			}); err != nil {
				slog.Warn("failed to persist message", "session", sess.UID, "err", err)
			}
		}
		return
	}

	// The last two turns are the new user question and the answer.
	n := len(answer.History)
	for _, t := range answer.History[max(0, n-2):] {
		if _, err := s.Store.CreateChatMessage(ctx, &store.CreateChatMessage{
			SessionID: sess.ID,
			Role:      string(t.Role),
			Content:   t.Text,
		}); err != nil {
			slog.Warn("failed to persist message", "session", sess.UID, "err", err)
		}
	}
}

// historyFromStored rebuilds the in-memory history: the session summary (if
// any) leads, followed by the stored messages oldest first.
func historyFromStored(sess *store.ChatSession, msgs []*store.ChatMessage) chat.History {
	h := make(chat.History, 0, len(msgs)+1)
	if sess.Summary != "" {
		h = append(h, chat.Turn{Role: chat.RoleSummary, Text: sess.Summary})
	}
	for _, m := range msgs {
		h = append(h, chat.Turn{Role: chat.Role(m.Role), Text: m.Content})
	}
	return h
}

func (s *APIV1Service) autoTitleSession(ctx context.Context, uid, firstMessage string) {
	prompt := fmt.Sprintf(
		"Generate a short (5-7 word) title for a travel chat that starts with:\n%q\nReturn only the title, no quotes.",
		firstMessage,
	)
	title, err := s.Gen.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(title) == "" {
		return
	}
	title = strings.TrimSpace(title)
	_, _ = s.Store.UpdateChatSession(ctx, &store.UpdateChatSession{UID: uid, Title: &title})
}

func toSessionResponse(sess *store.ChatSession) sessionResponse {
	return sessionResponse{
		UID:       sess.UID,
		Title:     sess.Title,
		CreatedTs: sess.CreatedTs,
		UpdatedTs: sess.UpdatedTs,
	}
}
