package logging

import (
	"log/slog"
	"strings"

	"github.com/mama165/sdk-go/logs"
	gormlogger "gorm.io/gorm/logger"
)

// New builds the process logger from a level name such as "debug" or "INFO".
func New(level string) *slog.Logger {
	return logs.GetLoggerFromString(strings.ToUpper(strings.TrimSpace(level)))
}

// GormLevel maps the application level onto gorm's own logger.
func GormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return gormlogger.Info
	case "silent", "off":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
