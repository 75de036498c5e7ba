// Log rotation tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFileWriter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "motiongen.log")

	writer, err := NewRotatingFileWriter(RotationConfig{Filename: logFile})
	if err != nil {
		t.Fatalf("failed to create rotating writer: %v", err)
	}
	defer writer.Close()

	msg := "test log message\n"
	n, err := writer.Write([]byte(msg))
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if n != len(msg) {
		t.Errorf("expected %d bytes written, got %d", len(msg), n)
	}
	if writer.CurrentSize() != int64(len(msg)) {
		t.Errorf("expected size %d, got %d", len(msg), writer.CurrentSize())
	}
	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestRotatingFileWriterRotation(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "motiongen.log")

	writer, err := NewRotatingFileWriter(RotationConfig{
		Filename:   logFile,
		MaxSize:    32,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("failed to create rotating writer: %v", err)
	}
	defer writer.Close()

	line := strings.Repeat("x", 20) + "\n"
	for i := 0; i < 5; i++ {
		if _, err := writer.Write([]byte(line)); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	for _, name := range []string{logFile, logFile + ".1", logFile + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(logFile + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected only 2 backups, found %s", logFile+".3")
	}
	if writer.CurrentSize() != int64(len(line)) {
		t.Errorf("expected active file to hold one line, got %d bytes", writer.CurrentSize())
	}
}

func TestRotatingFileWriterCompress(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "motiongen.log")

	writer, err := NewRotatingFileWriter(RotationConfig{
		Filename: logFile,
		MaxSize:  16,
		Compress: true,
	})
	if err != nil {
		t.Fatalf("failed to create rotating writer: %v", err)
	}
	defer writer.Close()

	writer.Write([]byte("first line here\n"))
	writer.Write([]byte("second line\n"))

	f, err := os.Open(logFile + ".1.gz")
	if err != nil {
		t.Fatalf("expected compressed backup: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	data, _ := io.ReadAll(gz)
	if string(data) != "first line here\n" {
		t.Errorf("unexpected backup contents: %q", data)
	}
	if _, err := os.Stat(logFile + ".1"); !os.IsNotExist(err) {
		t.Error("uncompressed backup should be removed")
	}
}

func TestRotatingFileWriterClosed(t *testing.T) {
	writer, err := NewRotatingFileWriter(RotationConfig{Filename: filepath.Join(t.TempDir(), "a.log")})
	if err != nil {
		t.Fatal(err)
	}
	writer.Close()
	if _, err := writer.Write([]byte("late")); err == nil {
		t.Error("expected error writing after close")
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestNewFileLogger(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "file.log")
	logger, writer, err := NewFileLogger("file", RotationConfig{Filename: logFile})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("to file")
	writer.Close()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "file: to file") {
		t.Errorf("unexpected file contents: %s", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("file logger should not colorize")
	}
}
