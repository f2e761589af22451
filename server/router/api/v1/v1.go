// Package v1 exposes the assistant over HTTP: session CRUD and a streaming
// chat endpoint. The service is single-user and local, so there is no auth
// layer.
package v1

import (
	"context"

	"github.com/labstack/echo/v5"

	"github.com/tripweaver/tripweaver/internal/chat"
	"github.com/tripweaver/tripweaver/internal/profile"
	"github.com/tripweaver/tripweaver/store"
)

// Answerer is the chat engine surface the handlers consume.
type Answerer interface {
	Answer(ctx context.Context, query string, history chat.History) (*chat.Answer, error)
}

// Generator produces short one-off completions (session auto-titles).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VisionDescriber describes an uploaded image.
type VisionDescriber interface {
	DescribeImage(ctx context.Context, image []byte, mimeType string) (string, error)
}

// APIV1Service carries the dependencies of every /api/v1 handler.
type APIV1Service struct {
	Store   *store.Store
	Engine  Answerer
	Gen     Generator
	Vision  VisionDescriber
	Profile *profile.Profile
}

func NewAPIV1Service(st *store.Store, engine Answerer, gen Generator, vision VisionDescriber, p *profile.Profile) *APIV1Service {
	return &APIV1Service{Store: st, Engine: engine, Gen: gen, Vision: vision, Profile: p}
}

// Register mounts all v1 routes.
func (s *APIV1Service) Register(e *echo.Echo) {
	s.registerChatRoutes(e)
	s.registerVisionRoutes(e)
}
