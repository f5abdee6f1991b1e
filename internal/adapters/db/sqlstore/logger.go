package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLogger routes gorm's logging into zerolog. Statements are logged at
// trace level, slow ones at warn, failures other than a missing row at error.
type queryLogger struct {
	log zerolog.Logger
}

func newQueryLogger(log zerolog.Logger) gormlogger.Interface {
	return queryLogger{log: log.With().Str("component", "sqlstore").Logger()}
}

// from returns the request-scoped logger in ctx, tagged as this component,
// or the store's own logger.
func (l queryLogger) from(ctx context.Context) *zerolog.Logger {
	if ctxLog := zerolog.Ctx(ctx); ctxLog.GetLevel() != zerolog.Disabled {
		tagged := ctxLog.With().Str("component", "sqlstore").Logger()
		return &tagged
	}
	return &l.log
}

func (l queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l queryLogger) Info(ctx context.Context, msg string, args ...any) {
	l.from(ctx).Info().Msgf(msg, args...)
}

func (l queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.from(ctx).Warn().Msgf(msg, args...)
}

func (l queryLogger) Error(ctx context.Context, msg string, args ...any) {
	l.from(ctx).Error().Msgf(msg, args...)
}

func (l queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	log := l.from(ctx)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !isConstraint(err):
		sql, rows := fc()
		log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query failed")
	case elapsed > slowQuery:
		sql, rows := fc()
		log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case log.GetLevel() <= zerolog.TraceLevel:
		sql, rows := fc()
		log.Trace().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("query")
	}
}

// gooseLogger routes goose's progress lines into zerolog.
type gooseLogger struct {
	log zerolog.Logger
}

func newGooseLogger(log zerolog.Logger) gooseLogger {
	return gooseLogger{log: log.With().Str("component", "migrate").Logger()}
}

func (l gooseLogger) Printf(format string, args ...any) {
	l.log.Info().Msg(strings.TrimSpace(strings.TrimPrefix(fmt.Sprintf(format, args...), "goose: ")))
}

func (l gooseLogger) Fatalf(format string, args ...any) {
	l.log.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
