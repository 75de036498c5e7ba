// Unit tests for coded errors
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestInvalidParameter(t *testing.T) {
	err := InvalidParameter("max_velocity", -1, "must be positive")
	if err.Code != ErrInvalidParameter {
		t.Errorf("expected code %s, got %s", ErrInvalidParameter, err.Code)
	}
	if err.Param != "max_velocity" {
		t.Errorf("expected param max_velocity, got %s", err.Param)
	}
	if err.Value != "-1" {
		t.Errorf("expected value -1, got %s", err.Value)
	}
	if !strings.Contains(err.Error(), "[INVALID_PARAMETER:max_velocity]") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestWrapUnwrap(t *testing.T) {
	err := SampleIOError("out.csv", io.ErrShortWrite)
	if !stderrors.Is(err, io.ErrShortWrite) {
		t.Error("wrapped error should match io.ErrShortWrite")
	}
	if !strings.Contains(err.Error(), "short write") {
		t.Errorf("message should include cause: %s", err.Error())
	}
	if err.Context["path"] != "out.csv" {
		t.Errorf("expected path context, got %v", err.Context)
	}
}

func TestIsThroughWrapping(t *testing.T) {
	inner := InvalidParameter("max_acceleration", 0, "must be positive")
	outer := fmt.Errorf("configure: %w", inner)

	if !Is(outer, ErrInvalidParameter) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if !IsInvalidParameter(outer) {
		t.Error("IsInvalidParameter should be true")
	}
	if Is(outer, ErrScenario) {
		t.Error("Is should not match a different code")
	}
	if Is(io.EOF, ErrInvalidParameter) {
		t.Error("plain errors never match")
	}
}

func TestConfigError(t *testing.T) {
	err := ConfigError("motion", "max_velocity", "must be above 0")
	if !IsConfig(err) || err.Param != "max_velocity" || err.Context["section"] != "motion" {
		t.Errorf("unexpected error fields: %+v", err)
	}
	if got := err.Error(); got != "[CONFIG:max_velocity] section [motion]: must be above 0" {
		t.Errorf("unexpected message: %s", got)
	}

	whole := ConfigError("", "", "recursive include")
	if whole.Param != "" || whole.Error() != "[CONFIG] recursive include" {
		t.Errorf("unexpected message: %s", whole.Error())
	}
}
