// Log file rotation support for motiongen
//
// Size-based rotation with numbered backups: app.log, app.log.1, app.log.2 ...
// Rotated files may be gzipped (app.log.1.gz).
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	// Filename is the path to the log file.
	Filename string

	// MaxSize is the maximum size in bytes before rotation.
	// Default is 10 MB.
	MaxSize int64

	// MaxBackups is the number of rotated files to keep. Default is 5.
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool
}

// RotatingFileWriter implements io.Writer with automatic file rotation.
type RotatingFileWriter struct {
	mu     sync.Mutex
	cfg    RotationConfig
	file   *os.File
	size   int64
	closed bool
}

// NewRotatingFileWriter opens (or appends to) the configured log file.
func NewRotatingFileWriter(cfg RotationConfig) (*RotatingFileWriter, error) {
	if cfg.Filename == "" {
		return nil, fmt.Errorf("log: filename is required")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}

	w := &RotatingFileWriter{cfg: cfg}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.cfg.Filename), 0755); err != nil {
		return fmt.Errorf("log: create directory: %w", err)
	}
	f, err := os.OpenFile(w.cfg.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("log: open %s: %w", w.cfg.Filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("log: stat %s: %w", w.cfg.Filename, err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write implements io.Writer. A single write larger than MaxSize is written
// whole into a fresh file.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.cfg.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// backupName returns the path of backup number n.
func (w *RotatingFileWriter) backupName(n int) string {
	name := fmt.Sprintf("%s.%d", w.cfg.Filename, n)
	if w.cfg.Compress {
		name += ".gz"
	}
	return name
}

// rotate shifts backups up by one, dropping the oldest, and moves the
// current file to backup 1.
func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("log: close for rotation: %w", err)
	}

	_ = os.Remove(w.backupName(w.cfg.MaxBackups))
	for n := w.cfg.MaxBackups - 1; n >= 1; n-- {
		_ = os.Rename(w.backupName(n), w.backupName(n+1))
	}

	if w.cfg.Compress {
		if err := gzipFile(w.cfg.Filename, w.backupName(1)); err != nil {
			return err
		}
	} else if err := os.Rename(w.cfg.Filename, w.backupName(1)); err != nil {
		return fmt.Errorf("log: rotate: %w", err)
	}

	return w.open()
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("log: compress: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("log: compress: %w", err)
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("log: compress: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return fmt.Errorf("log: compress: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("log: compress: %w", err)
	}
	return os.Remove(src)
}

// Close closes the underlying file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// CurrentSize returns the size of the active file.
func (w *RotatingFileWriter) CurrentSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// NewFileLogger creates a logger that writes to a rotating file.
func NewFileLogger(prefix string, cfg RotationConfig) (*Logger, *RotatingFileWriter, error) {
	writer, err := NewRotatingFileWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger := New(prefix)
	logger.SetWriter(writer)
	logger.SetColorize(false)
	return logger, writer, nil
}
