package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dakshkarigar/marketplace-api/internal/config"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "reassign", "migrate", "seed"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRootCmd_FlagsOverrideDefaults(t *testing.T) {
	c := &cli{v: config.New()}
	root := c.rootCmd()
	serveCmd, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)

	require.NoError(t, root.PersistentFlags().Set("log-level", "debug"))
	require.NoError(t, serveCmd.Flags().Set("port", "9191"))
	require.NoError(t, serveCmd.Flags().Set("schedule", "@every 5s"))

	cfg, err := config.Load(c.v, "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "9191", cfg.HTTP.Port)
	assert.Equal(t, "@every 5s", cfg.Reassignment.Schedule)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	logger, err := newLogger(config.LogConfig{Level: "warn", Format: "text"})
	require.NoError(t, err)
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
