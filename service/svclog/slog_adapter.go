package svclog

import (
	"context"
	"log/slog"
)

// slogHandler bridges a slog.Logger onto a Sink, so third-party libraries
// that only know how to log through log/slog (such as sutureslog, used by
// the registry package to drive suture's supervisor logging) can be pointed
// at whatever concrete Sink the host program plugged in, without this
// package or its callers importing a concrete logging library.
type slogHandler struct {
	sink   Sink
	attrs  []slog.Attr
	groups []string
}

// NewSlogLogger returns a *slog.Logger that forwards every record to sink,
// mapping slog levels onto Sink's four methods.
func NewSlogLogger(sink Sink) *slog.Logger {
	if sink == nil {
		sink = Nop{}
	}
	return slog.New(&slogHandler{sink: sink})
}

func (h *slogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *slogHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := make([]Field, 0, len(h.attrs)+rec.NumAttrs())
	for _, a := range h.attrs {
		fields = append(fields, h.field(a))
	}
	rec.Attrs(func(a slog.Attr) bool {
		fields = append(fields, h.field(a))
		return true
	})

	switch {
	case rec.Level >= slog.LevelError:
		h.sink.Error(rec.Message, fields...)
	case rec.Level >= slog.LevelWarn:
		h.sink.Warn(rec.Message, fields...)
	case rec.Level >= slog.LevelInfo:
		h.sink.Info(rec.Message, fields...)
	default:
		h.sink.Debug(rec.Message, fields...)
	}
	return nil
}

func (h *slogHandler) field(a slog.Attr) Field {
	key := a.Key
	if len(h.groups) > 0 {
		key = h.groups[len(h.groups)-1] + "." + key
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return Str(key, v.String())
	case slog.KindInt64:
		return Int(key, int(v.Int64()))
	case slog.KindBool:
		return Bool(key, v.Bool())
	case slog.KindDuration:
		return Dur(key, v.Duration())
	default:
		return Any(key, v.Any())
	}
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &slogHandler{sink: h.sink, groups: h.groups}
	next.attrs = append(next.attrs, h.attrs...)
	next.attrs = append(next.attrs, attrs...)
	return next
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	next := &slogHandler{sink: h.sink, attrs: h.attrs}
	next.groups = append(next.groups, append([]string{}, h.groups...)...)
	next.groups = append(next.groups, name)
	return next
}

var _ slog.Handler = (*slogHandler)(nil)
