package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/iwanyu/marketplace/internal/lib/logger"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, logger.SetupLogger(logger.EnvLocal).Enabled(ctx, slog.LevelDebug))
	assert.True(t, logger.SetupLogger(logger.EnvDev).Enabled(ctx, slog.LevelDebug))
	assert.False(t, logger.SetupLogger(logger.EnvProd).Enabled(ctx, slog.LevelDebug))
	assert.False(t, logger.SetupLogger("unknown").Enabled(ctx, slog.LevelDebug))
}
