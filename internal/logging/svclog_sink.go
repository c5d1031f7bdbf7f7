package logging

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/gomode/service/svclog"
)

// ZerologSink adapts a zerolog.Logger to service/svclog.Sink, the
// structured log sink the lifecycle core requires.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink wraps the package's global logger (see Logger) as a
// svclog.Sink. Use WithLogger to build one around a component-scoped
// logger instead.
func NewZerologSink() ZerologSink {
	return ZerologSink{logger: Logger()}
}

// WithLogger builds a ZerologSink around a specific zerolog.Logger, e.g.
// one produced by logging.With().Str("tree", name).Logger().
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) ZerologSink {
	return ZerologSink{logger: logger}
}

func (s ZerologSink) event(lvl zerolog.Level) *zerolog.Event {
	switch lvl {
	case zerolog.DebugLevel:
		return s.logger.Debug()
	case zerolog.WarnLevel:
		return s.logger.Warn()
	case zerolog.ErrorLevel:
		return s.logger.Error()
	default:
		return s.logger.Info()
	}
}

func apply(e *zerolog.Event, fields []svclog.Field) *zerolog.Event {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e = e.Err(v)
		case string:
			e = e.Str(f.Key, v)
		case int:
			e = e.Int(f.Key, v)
		case bool:
			e = e.Bool(f.Key, v)
		case fmt.Stringer:
			e = e.Str(f.Key, v.String())
		default:
			e = e.Interface(f.Key, v)
		}
	}
	return e
}

func (s ZerologSink) Debug(msg string, fields ...svclog.Field) {
	apply(s.event(zerolog.DebugLevel), fields).Msg(msg)
}

func (s ZerologSink) Info(msg string, fields ...svclog.Field) {
	apply(s.event(zerolog.InfoLevel), fields).Msg(msg)
}

func (s ZerologSink) Warn(msg string, fields ...svclog.Field) {
	apply(s.event(zerolog.WarnLevel), fields).Msg(msg)
}

func (s ZerologSink) Error(msg string, fields ...svclog.Field) {
	apply(s.event(zerolog.ErrorLevel), fields).Msg(msg)
}

var _ svclog.Sink = ZerologSink{}
