package log

import "context"

// Logger is the logging contract used across the hub. Implementations carry
// structured fields and enrich each entry with the active trace span when one
// is present in the context.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]any)
	Info(ctx context.Context, msg string, fields ...map[string]any)
	Warn(ctx context.Context, msg string, fields ...map[string]any)
	Error(ctx context.Context, msg string, err error, fields ...map[string]any)
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]any)
	// With returns a derived logger carrying the given fields on every entry.
	With(fields map[string]any) Logger
}
