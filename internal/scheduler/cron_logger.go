// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/labelkeeper/internal/logging"
)

// cronLogger adapts cron.Logger to zerolog. Routine cron chatter is logged at
// debug; recovered panics at error.
type cronLogger struct {
	logger zerolog.Logger
}

func newCronLogger() cronLogger {
	return cronLogger{logger: logging.WithComponent("cron")}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
