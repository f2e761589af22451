// Command tripweaver runs the Vietnam travel assistant: an HTTP service by
// default, plus an interactive REPL, a dataset loader and a graph exporter.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tripweaver/tripweaver/internal/cache"
	"github.com/tripweaver/tripweaver/internal/chat"
	"github.com/tripweaver/tripweaver/internal/knowledge"
	"github.com/tripweaver/tripweaver/internal/profile"
	"github.com/tripweaver/tripweaver/internal/retry"
	"github.com/tripweaver/tripweaver/plugin/gemini"
	"github.com/tripweaver/tripweaver/plugin/vectorstore"
	"github.com/tripweaver/tripweaver/server"
	"github.com/tripweaver/tripweaver/store"
	"github.com/tripweaver/tripweaver/store/db/sqlite"
)

var instance = viper.New()

var rootCmd = &cobra.Command{
	Use:   "tripweaver",
	Short: "Travel assistant for Vietnam with a semantic query cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		srv := server.NewServer(rt.profile, rt.store, rt.engine, rt.gemini, rt.gemini)
		return srv.Start(ctx)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of the server, "prod" or "dev"`)
	flags.String("addr", "", "address to bind the server to")
	flags.Int("port", 8230, "port to bind the server to")
	flags.String("data", "", "directory for the sqlite database and vector store")
	flags.String("gemini-api-key", "", "API key for the generative language API")
	flags.String("chat-model", "gemini-2.5-flash", "chat model name")
	flags.String("embedding-model", "text-embedding-004", "embedding model name")
	flags.Int("top-k", 5, "knowledge documents retrieved per query")
	flags.Duration("cache-ttl", 0, "max age of a served cache entry")
	flags.Float64("cache-threshold", 0, "minimum cosine similarity for a cache hit")

	profile.SetDefaults(instance)
	if err := instance.BindPFlags(flags); err != nil {
		panic(err)
	}
	instance.SetEnvPrefix("tripweaver")
	instance.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	instance.AutomaticEnv()

	rootCmd.AddCommand(chatCmd, loadCmd, graphCmd)
}

// runtime is the fully wired assistant shared by every command.
type runtime struct {
	profile *profile.Profile
	store   *store.Store
	vectors *vectorstore.Store
	gemini  *gemini.Client
	engine  *chat.Engine
}

func newRuntime(ctx context.Context) (*runtime, error) {
	p, err := profile.GetProfile(instance)
	if err != nil {
		return nil, err
	}
	setupLogger(p)

	if p.GeminiAPIKey == "" {
		return nil, fmt.Errorf("no API key configured, set GEMINI_API_KEY")
	}

	g, err := gemini.New(ctx, gemini.Config{
		APIKey:          p.GeminiAPIKey,
		ChatModel:       p.ChatModel,
		EmbeddingModel:  p.EmbeddingModel,
		GenerateTimeout: p.GenerateTimeout,
		EmbedTimeout:    p.EmbedTimeout,
		VisionTimeout:   p.VisionTimeout,
		Retry:           retry.Config{Attempts: p.MaxRetries},
	})
	if err != nil {
		return nil, err
	}

	driver, err := sqlite.New(p.DSN())
	if err != nil {
		return nil, err
	}
	st := store.New(driver)
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	vs, err := vectorstore.New(p.Data, g.Embed)
	if err != nil {
		return nil, err
	}

	qc := cache.New(&cacheIndex{vs: vs}, g, cache.Config{
		Threshold: p.CacheThreshold,
		TTL:       p.CacheTTL,
		TopK:      p.CacheTopK,
	})
	retriever := knowledge.NewRetriever(vs, st, p.TopK)
	compactor := chat.NewCompactor(g, chat.CompactorConfig{
		MaxUserTurns: p.CompactAfterUserTurns,
		KeepRecent:   p.KeepRecentTurns,
	})
	engine := chat.NewEngine(qc, retriever, g, compactor)

	return &runtime{profile: p, store: st, vectors: vs, gemini: g, engine: engine}, nil
}

// cacheIndex adapts the vector store's cache collection to the cache's
// nearest-neighbor interface.
type cacheIndex struct {
	vs *vectorstore.Store
}

func (i *cacheIndex) Nearest(ctx context.Context, embedding []float32, k int) ([]cache.Entry, error) {
	recs, err := i.vs.NearestCacheRecords(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	entries := make([]cache.Entry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, cache.Entry{
			Query:     r.Query,
			Embedding: r.Embedding,
			Response:  r.Response,
			CachedAt:  r.CachedAt,
		})
	}
	return entries, nil
}

func (i *cacheIndex) Insert(ctx context.Context, e cache.Entry) error {
	return i.vs.AddCacheRecord(ctx, vectorstore.CacheRecord{
		Query:     e.Query,
		Response:  e.Response,
		Embedding: e.Embedding,
		CachedAt:  e.CachedAt,
	})
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
