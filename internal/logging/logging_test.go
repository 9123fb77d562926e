package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	log := New("debug")
	require.NotNil(t, log)
	require.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestGormLevel(t *testing.T) {
	require.Equal(t, gormlogger.Info, GormLevel("DEBUG"))
	require.Equal(t, gormlogger.Warn, GormLevel("info"))
	require.Equal(t, gormlogger.Error, GormLevel("error"))
	require.Equal(t, gormlogger.Silent, GormLevel("silent"))
}
