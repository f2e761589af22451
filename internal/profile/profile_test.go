package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestGetProfileDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("data", t.TempDir())

	p, err := GetProfile(v)
	require.NoError(t, err)

	require.Equal(t, "dev", p.Mode)
	require.Equal(t, "gemini-2.5-flash", p.ChatModel)
	require.Equal(t, "text-embedding-004", p.EmbeddingModel)
	require.Equal(t, 5, p.TopK)
	require.Equal(t, time.Hour, p.CacheTTL)
	require.Equal(t, 0.92, p.CacheThreshold)
	require.Equal(t, 5, p.CompactAfterUserTurns)
	require.Equal(t, 3, p.KeepRecentTurns)
	require.Equal(t, 3, p.MaxRetries)
	require.Equal(t, 30*time.Second, p.GenerateTimeout)
	require.Equal(t, 45*time.Second, p.VisionTimeout)
}

func TestValidateFillsZeroValues(t *testing.T) {
	p := &Profile{Mode: "weird", Data: t.TempDir()}
	require.NoError(t, p.Validate())

	require.Equal(t, "dev", p.Mode)
	require.True(t, p.IsDev())
	require.Equal(t, 0.92, p.CacheThreshold)
	require.Equal(t, time.Hour, p.CacheTTL)
	require.Equal(t, 8, p.CacheTopK)
}

func TestDSNUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "prod", Data: dir}
	require.NoError(t, p.Validate())
	require.Equal(t, filepath.Join(dir, "tripweaver.db"), p.DSN())
	require.False(t, p.IsDev())
}
