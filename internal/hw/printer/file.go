package printer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cjeanneret/PhotoBooth/internal/debug"
)

// File "prints" by copying the image into a prints/ folder next to it.
type File struct {
	log *debug.Logger
}

func NewFile(log *debug.Logger) *File {
	log.Info("Using file printer")
	return &File{log: log}
}

func (f *File) PrintImage(_ context.Context, path string) error {
	folder := filepath.Join(filepath.Dir(path), "prints")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create prints folder: %w", err)
	}
	f.log.Info("Printing: %s", path)

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(folder, filepath.Base(path)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return dst.Close()
}

func (f *File) Err() error { return nil }
