package logger

import (
	"io"
	"log/slog"
	"os"
)

// New: JSON-логгер в stdout; для env=dev включён debug.
func New(env string) *slog.Logger {
	return NewWriter(env, os.Stdout)
}

func NewWriter(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "warehouse-ledger")
}

// Nop отбрасывает все записи (тесты).
func Nop() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
