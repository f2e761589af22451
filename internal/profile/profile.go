// Package profile resolves the runtime configuration for tripweaver from
// flags, TRIPWEAVER_* environment variables, and an optional .env file.
package profile

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile holds every tunable the assistant reads at startup. The cache and
// compaction knobs carry the defaults observed in production; all of them
// are overridable.
type Profile struct {
	// Mode is "prod" or "dev". Dev enables debug logging.
	Mode string
	// Addr and Port bind the HTTP server.
	Addr string
	Port int
	// Data is the directory holding the sqlite database and the vector store.
	Data string

	// GeminiAPIKey authenticates against the generative language API.
	GeminiAPIKey string
	// ChatModel and EmbeddingModel name the hosted models.
	ChatModel      string
	EmbeddingModel string

	// TopK is the number of knowledge documents retrieved per query.
	TopK int
	// CacheTTL bounds how long a cached response may be served.
	CacheTTL time.Duration
	// CacheThreshold is the minimum cosine similarity (strict) for a cache hit.
	CacheThreshold float64
	// CacheTopK is the candidate fan-out for cache lookups.
	CacheTopK int

	// CompactAfterUserTurns triggers history compaction once the number of
	// raw user turns exceeds it.
	CompactAfterUserTurns int
	// KeepRecentTurns is how many trailing turns survive compaction verbatim.
	KeepRecentTurns int

	// GenerateTimeout, EmbedTimeout and VisionTimeout bound single external
	// calls. MaxRetries is the attempt budget for generation and embedding.
	GenerateTimeout time.Duration
	EmbedTimeout    time.Duration
	VisionTimeout   time.Duration
	MaxRetries      int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// DSN is the sqlite database path under the data directory.
func (p *Profile) DSN() string {
	return filepath.Join(p.Data, "tripweaver.db")
}

func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if p.Data == "" {
		p.Data = "."
	}
	abs, err := filepath.Abs(p.Data)
	if err != nil {
		return errors.Wrap(err, "resolve data dir")
	}
	p.Data = abs
	if err := os.MkdirAll(p.Data, 0o750); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	if p.TopK <= 0 {
		p.TopK = 5
	}
	if p.CacheTopK <= 0 {
		p.CacheTopK = 8
	}
	if p.CacheThreshold <= 0 {
		p.CacheThreshold = 0.92
	}
	if p.CacheTTL <= 0 {
		p.CacheTTL = time.Hour
	}
	if p.CompactAfterUserTurns <= 0 {
		p.CompactAfterUserTurns = 5
	}
	if p.KeepRecentTurns <= 0 {
		p.KeepRecentTurns = 3
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	return nil
}

// SetDefaults registers every key with its default value on the given viper
// instance. Called once from the command wiring before flags are bound.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8230)
	v.SetDefault("data", "")
	v.SetDefault("chat-model", "gemini-2.5-flash")
	v.SetDefault("embedding-model", "text-embedding-004")
	v.SetDefault("top-k", 5)
	v.SetDefault("cache-ttl", time.Hour)
	v.SetDefault("cache-threshold", 0.92)
	v.SetDefault("cache-top-k", 8)
	v.SetDefault("compact-after-user-turns", 5)
	v.SetDefault("keep-recent-turns", 3)
	v.SetDefault("generate-timeout", 30*time.Second)
	v.SetDefault("embed-timeout", 30*time.Second)
	v.SetDefault("vision-timeout", 45*time.Second)
	v.SetDefault("max-retries", 3)
}

// GetProfile materializes a Profile from the given viper instance. A .env
// file in the working directory is loaded first so local setups can keep
// the API key out of the shell.
func GetProfile(v *viper.Viper) (*Profile, error) {
	_ = godotenv.Load()

	// GEMINI_API_KEY works with or without the TRIPWEAVER_ prefix.
	_ = v.BindEnv("gemini-api-key", "TRIPWEAVER_GEMINI_API_KEY", "GEMINI_API_KEY")

	p := &Profile{
		Mode:                  v.GetString("mode"),
		Addr:                  v.GetString("addr"),
		Port:                  v.GetInt("port"),
		Data:                  v.GetString("data"),
		GeminiAPIKey:          v.GetString("gemini-api-key"),
		ChatModel:             v.GetString("chat-model"),
		EmbeddingModel:        v.GetString("embedding-model"),
		TopK:                  v.GetInt("top-k"),
		CacheTTL:              v.GetDuration("cache-ttl"),
		CacheThreshold:        v.GetFloat64("cache-threshold"),
		CacheTopK:             v.GetInt("cache-top-k"),
		CompactAfterUserTurns: v.GetInt("compact-after-user-turns"),
		KeepRecentTurns:       v.GetInt("keep-recent-turns"),
		GenerateTimeout:       v.GetDuration("generate-timeout"),
		EmbedTimeout:          v.GetDuration("embed-timeout"),
		VisionTimeout:         v.GetDuration("vision-timeout"),
		MaxRetries:            v.GetInt("max-retries"),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
