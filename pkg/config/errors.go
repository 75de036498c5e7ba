// Config error constructors
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"fmt"

	"motiongen/pkg/errors"
)

// Every error this package returns carries errors.ErrConfig.

// optionError names the section and option in an ErrConfig error.
func optionError(section, option, format string, args ...interface{}) *errors.Error {
	return errors.ConfigError(section, option, fmt.Sprintf("option %s %s", option, fmt.Sprintf(format, args...)))
}

func missingOption(section, option string) *errors.Error {
	return optionError(section, option, "must be specified")
}

func missingSection(section string) *errors.Error {
	return errors.ConfigError(section, "", "section not found")
}

func badValue(section, option, raw, kind string) *errors.Error {
	return optionError(section, option, "has invalid value %q, expected %s", raw, kind).SetValue(raw)
}

// syntaxError locates a malformed line.
func syntaxError(file string, line int, what string) *errors.Error {
	return errors.ConfigError("", "", fmt.Sprintf("%s:%d: %s", file, line, what)).
		SetContext("file", file).
		SetContext("line", line)
}

// fileError wraps a failure to open, read or watch a config file.
func fileError(path, op string, err error) *errors.Error {
	return errors.Wrap(err, errors.ErrConfig, fmt.Sprintf("%s %s", op, path)).
		SetContext("file", path)
}
