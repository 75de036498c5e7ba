// Config sections and typed option readers
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package config

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Section is one [name] block. Every read is recorded so options nobody
// asked for can be reported as unknown.
type Section struct {
	name string
	opts map[string]string // lower-cased keys

	mu   sync.Mutex
	seen map[string]bool
}

func newSection(name string, options map[string]string) *Section {
	s := &Section{
		name: name,
		opts: make(map[string]string, len(options)),
		seen: make(map[string]bool),
	}
	s.merge(options)
	return s
}

// merge folds options into the section, later values winning.
func (s *Section) merge(options map[string]string) {
	for k, v := range options {
		s.opts[strings.ToLower(k)] = v
	}
}

// Name returns the section header.
func (s *Section) Name() string { return s.name }

// Has reports whether option is set. It does not count as a read.
func (s *Section) Has(option string) bool {
	_, ok := s.opts[strings.ToLower(option)]
	return ok
}

// Unused lists the options that were never read, sorted.
func (s *Section) Unused() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for key := range s.opts {
		if !s.seen[key] {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// lookup returns the raw text of option and marks it read.
func (s *Section) lookup(option string) (string, bool) {
	key := strings.ToLower(option)
	s.mu.Lock()
	s.seen[key] = true
	s.mu.Unlock()
	raw, ok := s.opts[key]
	return raw, ok
}

// read resolves option through parse. A missing option falls back to the
// first default, or is an error when none is given. kind names the
// expected type in error messages.
func read[T any](s *Section, option, kind string, parse func(string) (T, bool), def []T) (T, error) {
	var zero T
	raw, ok := s.lookup(option)
	if !ok {
		if len(def) == 0 {
			return zero, missingOption(s.name, option)
		}
		return def[0], nil
	}
	v, ok := parse(strings.TrimSpace(raw))
	if !ok {
		return zero, badValue(s.name, option, raw, kind)
	}
	return v, nil
}

func parseText(raw string) (string, bool) { return raw, true }

func parseInt(raw string) (int, bool) {
	i, err := strconv.Atoi(raw)
	return i, err == nil
}

func parseFloat(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

// Text returns option as written, surrounding whitespace removed.
func (s *Section) Text(option string, def ...string) (string, error) {
	return read(s, option, "text", parseText, def)
}

// Int returns option as a decimal integer.
func (s *Section) Int(option string, def ...int) (int, error) {
	return read(s, option, "integer", parseInt, def)
}

// Float returns option as a finite float.
func (s *Section) Float(option string, def ...float64) (float64, error) {
	return read(s, option, "number", parseFloat, def)
}

// Bool accepts 1/0, true/false, yes/no and on/off.
func (s *Section) Bool(option string, def ...bool) (bool, error) {
	return read(s, option, "boolean (true/false/yes/no/on/off/1/0)", parseBool, def)
}

// Bound restricts a numeric option. It returns why v is rejected, or "".
type Bound func(v float64) string

func formatNum(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// AtLeast rejects values below min.
func AtLeast(min float64) Bound {
	return func(v float64) string {
		if v < min {
			return "must have minimum of " + formatNum(min)
		}
		return ""
	}
}

// AtMost rejects values above max.
func AtMost(max float64) Bound {
	return func(v float64) string {
		if v > max {
			return "must have maximum of " + formatNum(max)
		}
		return ""
	}
}

// Above rejects values at or below x.
func Above(x float64) Bound {
	return func(v float64) string {
		if v <= x {
			return "must be above " + formatNum(x)
		}
		return ""
	}
}

func (s *Section) check(option string, v float64, bounds []Bound) error {
	for _, b := range bounds {
		if why := b(v); why != "" {
			return optionError(s.name, option, "value %s %s", formatNum(v), why).SetValue(formatNum(v))
		}
	}
	return nil
}

// FloatIn is Float with a default and range checks.
func (s *Section) FloatIn(option string, def float64, bounds ...Bound) (float64, error) {
	v, err := s.Float(option, def)
	if err != nil {
		return 0, err
	}
	if err := s.check(option, v, bounds); err != nil {
		return 0, err
	}
	return v, nil
}

// IntIn is Int with a default and range checks.
func (s *Section) IntIn(option string, def int, bounds ...Bound) (int, error) {
	v, err := s.Int(option, def)
	if err != nil {
		return 0, err
	}
	if err := s.check(option, float64(v), bounds); err != nil {
		return 0, err
	}
	return v, nil
}
