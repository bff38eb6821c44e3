package apperr

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveKeys = []string{"token", "password", "authorization", "cookie", "secret"}

// Log writes e to logger at a level chosen by kind. Context values whose
// key names a credential are redacted.
func Log(ctx context.Context, logger *slog.Logger, e *AppError) {
	if e == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("kind", e.Kind.String()),
		slog.String("message", e.Message),
		slog.Time("timestamp", e.Timestamp),
		slog.Bool("retryable", ShouldRetry(e)),
	}
	if e.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", e.StatusCode))
	}
	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	if len(e.Context) > 0 {
		attrs = append(attrs, slog.Attr{Key: "context", Value: slog.GroupValue(contextAttrs(e.Context)...)})
	}
	logger.LogAttrs(ctx, levelFor(e.Kind), "request failed", attrs...)
}

func levelFor(k Kind) slog.Level {
	switch k {
	case KindServer, KindUnknown:
		return slog.LevelError
	case KindNetwork, KindTimeout:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func contextAttrs(values map[string]any) []slog.Attr {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		v := values[k]
		if isSensitive(k) {
			v = redacted
		} else if m, ok := v.(map[string]any); ok {
			attrs = append(attrs, slog.Attr{Key: k, Value: slog.GroupValue(contextAttrs(m)...)})
			continue
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
