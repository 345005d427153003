package util

import (
	"log/slog"
	"os"
)

// CloseFileFunc closes f, logging any failure through logger instead of
// swallowing it. A nil logger falls back to slog.Default(), the same
// convention every other collaborator in this module uses.
func CloseFileFunc(f *os.File, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := f.Close(); err != nil {
		logger.Warn("close file failed", "path", f.Name(), "err", err)
	}
}
