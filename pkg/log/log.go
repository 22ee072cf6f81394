package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"go.opentelemetry.io/otel/trace"

	charmlog "github.com/charmbracelet/log"
)

type (
	Format string
	Level  string

	contextKey struct{}
)

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"

	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"

	// traceIDLength is how much of the trace ID is attached to records.
	traceIDLength = 8
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	AllFormats = []string{
		string(FormatJSON),
		string(FormatLogfmt),
		string(FormatText),
	}
	AllLevels = []string{
		string(LevelError),
		string(LevelWarn),
		string(LevelInfo),
		string(LevelDebug),
	}

	levels = map[Level]slog.Level{
		LevelError: slog.LevelError,
		LevelWarn:  slog.LevelWarn,
		"warning":  slog.LevelWarn,
		LevelInfo:  slog.LevelInfo,
		LevelDebug: slog.LevelDebug,
	}
)

// Options describes a [slog.Handler] built by [NewHandler].
type Options struct {
	Format Format
	Level  slog.Level
	// Source reports the caller of every record.
	Source bool
}

// ParseOptions reads level and format names as given to the --log-level and
// --log-format flags. Names are case-insensitive.
func ParseOptions(level, format string) (Options, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	f, err := ParseFormat(format)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return Options{Level: lvl, Format: f, Source: true}, nil
}

func ParseLevel(level string) (slog.Level, error) {
	lvl, ok := levels[Level(strings.ToLower(strings.TrimSpace(level)))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, level)
	}

	return lvl, nil
}

func ParseFormat(format string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	if !slices.Contains(AllFormats, string(f)) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLogFormat, format)
	}

	return f, nil
}

// NewHandler creates a handler writing to w. The text format is colored
// when w is a terminal that supports it. Unknown formats use text.
func NewHandler(w io.Writer, o Options) slog.Handler {
	ho := &slog.HandlerOptions{
		AddSource: o.Source,
		Level:     o.Level,
	}

	switch o.Format {
	case FormatJSON:
		return slog.NewJSONHandler(w, ho)
	case FormatLogfmt:
		return slog.NewTextHandler(w, ho)
	}

	//nolint:gosec // G115: slog levels are small.
	lvl := int32(o.Level)

	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		Formatter:       charmlog.TextFormatter,
		ReportTimestamp: true,
		ReportCaller:    o.Source,
		TimeFormat:      time.StampMilli,
	})
	logger.SetColorProfile(termenv.NewOutput(w).EnvColorProfile())

	return logger
}

// Diagnostics returns the logger for a command whose output stream carries a
// machine-read response, such as the hook. When disabled every record is
// dropped. Otherwise records at every level go to w, in format or in text
// when format is not recognized.
func Diagnostics(w io.Writer, enabled bool, format string) *slog.Logger {
	if !enabled {
		return Discard()
	}

	f, err := ParseFormat(format)
	if err != nil {
		f = FormatText
	}

	return slog.New(NewHandler(w, Options{Level: slog.LevelDebug, Format: f}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// With returns a copy of ctx whose logger also carries args, along with that
// logger. Use it to tag every record of a unit of work, e.g. a request.
func With(ctx context.Context, args ...any) (context.Context, *slog.Logger) {
	logger := stored(ctx).With(args...)

	return NewContext(ctx, logger), withTrace(ctx, logger)
}

// FromContext returns the logger carried by ctx, or the default logger.
// Records are tagged with the short trace ID of the span in ctx, if any.
func FromContext(ctx context.Context) *slog.Logger {
	return withTrace(ctx, stored(ctx))
}

func stored(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}

func withTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}

	id := sc.TraceID().String()

	return logger.With(slog.String("trace_id", id[:min(len(id), traceIDLength)]))
}
