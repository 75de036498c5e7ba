// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package config parses printer.cfg-style INI files (sections, "key: value"
// options, [include] directives) with access tracking and typed readers,
// and maps them onto the motion generator settings.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"motiongen/pkg/errors"
)

// Config provides access to a configuration file with access tracking.
type Config struct {
	mu       sync.RWMutex
	sections map[string]*Section
	order    []string // Maintains section order

	// Access tracking for sections
	accessedSections map[string]struct{}
}

// New creates a new empty Config.
func New() *Config {
	return &Config{
		sections:         make(map[string]*Section),
		accessedSections: make(map[string]struct{}),
	}
}

// Load reads a configuration file and returns a Config.
// Supports [include path] directives for including other config files.
func Load(path string) (*Config, error) {
	c := New()
	visited := make(map[string]bool)
	if err := c.parseFile(path, visited); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadString parses a configuration from a string. Include directives are
// resolved relative to the working directory.
func LoadString(data string) (*Config, error) {
	c := New()
	if err := c.parse(strings.NewReader(data), "<string>", ".", make(map[string]bool)); err != nil {
		return nil, err
	}
	return c, nil
}

// parseFile parses a config file and handles include directives.
func (c *Config) parseFile(path string, visited map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fileError(path, "resolve", err)
	}

	// Check for recursive includes
	if visited[abs] {
		return errors.ConfigError("", "", "recursive include: "+path).SetContext("file", path)
	}
	visited[abs] = true
	defer func() { visited[abs] = false }()

	f, err := os.Open(abs)
	if err != nil {
		return fileError(path, "open", err)
	}
	defer f.Close()

	return c.parse(f, path, filepath.Dir(abs), visited)
}

func (c *Config) parse(r io.Reader, name, dir string, visited map[string]bool) error {
	var currentSection string
	var currentOptions map[string]string

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Strip comments
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		// Section header
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if currentSection != "" {
				c.addSection(currentSection, currentOptions)
			}

			header := strings.TrimSpace(line[1 : len(line)-1])
			if header == "" {
				return syntaxError(name, lineNum, "empty section header")
			}

			if strings.HasPrefix(header, "include ") {
				spec := strings.TrimSpace(header[8:])
				if spec == "" {
					return syntaxError(name, lineNum, "empty include")
				}
				if err := c.include(filepath.Join(dir, spec), visited); err != nil {
					return err
				}
				currentSection = ""
				currentOptions = nil
				continue
			}

			currentSection = header
			currentOptions = make(map[string]string)
			continue
		}

		// Skip options before first section
		if currentSection == "" {
			continue
		}

		// Parse key: value or key = value
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			kv = strings.SplitN(line, "=", 2)
		}
		if len(kv) != 2 {
			return syntaxError(name, lineNum, "expected 'key: value'")
		}

		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		currentOptions[key] = strings.TrimSpace(kv[1])
	}

	if currentSection != "" {
		c.addSection(currentSection, currentOptions)
	}

	if err := scanner.Err(); err != nil {
		return fileError(name, "read", err)
	}
	return nil
}

func (c *Config) include(glob string, visited map[string]bool) error {
	matches, err := filepath.Glob(glob)
	if err != nil {
		return fileError(glob, "expand include", err)
	}
	sort.Strings(matches)
	if len(matches) == 0 && !strings.ContainsAny(glob, "*?[") {
		return errors.ConfigError("", "", "include file does not exist: "+glob).SetContext("file", glob)
	}
	for _, m := range matches {
		if err := c.parseFile(m, visited); err != nil {
			return err
		}
	}
	return nil
}

// addSection adds a section to the config. A repeated section merges its
// options into the first one, later values winning.
func (c *Config) addSection(name string, options map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.sections[name]; ok {
		existing.merge(options)
		return
	}

	c.sections[name] = newSection(name, options)
	c.order = append(c.order, name)
}

// Section returns the named section, or an error if the file has none.
func (c *Config) Section(name string) (*Section, error) {
	sec := c.Lookup(name)
	if sec == nil {
		return nil, missingSection(name)
	}
	return sec, nil
}

// Lookup returns the named section, or nil. Either way the section counts
// as read.
func (c *Config) Lookup(name string) *Section {
	c.mu.Lock()
	defer c.mu.Unlock()

	sec, ok := c.sections[name]
	if ok {
		c.accessedSections[name] = struct{}{}
	}
	return sec
}

// Has reports whether the named section exists.
func (c *Config) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sections[name]
	return ok
}

// Names returns the section names in file order.
func (c *Config) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.order))
	copy(result, c.order)
	return result
}

func (c *Config) unusedSections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var result []string
	for name := range c.sections {
		if _, ok := c.accessedSections[name]; !ok {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}

// UnusedWarnings describes every section and option nobody read.
func (c *Config) UnusedWarnings() []string {
	var warnings []string
	for _, name := range c.unusedSections() {
		warnings = append(warnings, fmt.Sprintf("unknown section [%s]", name))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range c.order {
		if _, ok := c.accessedSections[name]; !ok {
			continue
		}
		for _, opt := range c.sections[name].Unused() {
			warnings = append(warnings, fmt.Sprintf("unknown option '%s' in [%s]", opt, name))
		}
	}
	return warnings
}
