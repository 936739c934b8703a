package dataverse

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
)

// slogAdapter forwards resty's printf-style logging to a slog.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func newSlogAdapter(logger *slog.Logger) resty.Logger {
	return &slogAdapter{logger: logger}
}

func (a *slogAdapter) Errorf(format string, v ...interface{}) {
	a.logger.Error(message(format, v...))
}

func (a *slogAdapter) Warnf(format string, v ...interface{}) {
	a.logger.Warn(message(format, v...))
}

func (a *slogAdapter) Debugf(format string, v ...interface{}) {
	a.logger.Debug(message(format, v...))
}

func message(format string, v ...interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, v...))
}
