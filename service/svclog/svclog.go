// Package svclog defines the structured log sink the lifecycle core
// consumes. The core never imports a concrete logging library directly
// (spec §1: "Concrete logging, metrics, and tracing emitters ... are
// external collaborators"); it only requires something satisfying Sink.
//
// A host program plugs in a concrete Sink -- typically
// github.com/tomtom215/gomode/internal/logging's zerolog-backed
// implementation -- via service.WithSink.
package svclog

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// Str builds a string Field.
func Str(key, value string) Field { return Field{Key: key, Value: value} }

// Err builds an error Field under the conventional "error" key.
func Err(err error) Field { return Field{Key: "error", Value: err} }

// Dur builds a Field carrying any value implementing fmt.Stringer or a
// primitive duration-like type; kept untyped so callers can pass
// time.Duration without this package importing "time" for a single use.
func Dur(key string, value any) Field { return Field{Key: key, Value: value} }

// Int builds an integer Field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Bool builds a boolean Field.
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Any builds a Field from an arbitrary value, for attributes that don't fit
// one of the typed constructors above (used by the slog bridge in
// slog_adapter.go to carry attributes of slog kinds this package has no
// dedicated constructor for).
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Sink is the structured log sink the core requires (spec §6, §1). Levels
// match the contract named in spec §6: debug, info, warning, error.
type Sink interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Nop is a Sink that discards everything. It is the core's zero-value
// default so a Service never needs a nil check before logging.
type Nop struct{}

func (Nop) Debug(string, ...Field) {}
func (Nop) Info(string, ...Field)  {}
func (Nop) Warn(string, ...Field)  {}
func (Nop) Error(string, ...Field) {}

var _ Sink = Nop{}
