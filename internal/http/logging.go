package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// requestLogger prefers the logger RequestLogger placed on the context, so
// entries carry the request id and principal.
func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return defaultLogger(fallback)
}

// handlerLogger tags the request logger with the serving handler and, when
// given, the operation.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 4+len(attrs))
	if handlerName != "" {
		pairs = append(pairs, "handler", handlerName)
	}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	pairs = append(pairs, attrs...)

	logger := requestLogger(ctx, fallback)
	if len(pairs) == 0 {
		return logger
	}
	return logger.With(pairs...)
}
