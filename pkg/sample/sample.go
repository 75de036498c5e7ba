// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package sample holds the per-tick generator output and the CSV table
// format used by the plotting scripts.
package sample

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"motiongen/pkg/errors"
	"motiongen/pkg/motion"
	"motiongen/pkg/pool"
)

// Header is the first line of every sample table.
const Header = "Time(ms),Position"

// Sample is the generator output at one control tick.
type Sample struct {
	TimeMs       uint64       `json:"time_ms"`
	Target       float64      `json:"target"`
	Position     float64      `json:"position"`
	Velocity     float64      `json:"velocity"`
	Acceleration float64      `json:"acceleration"`
	Finished     bool         `json:"finished"`
	Phase        motion.Phase `json:"-"`
	PhaseName    string       `json:"phase"`
}

// FromGenerator captures the generator state after an Update at ms.
func FromGenerator(ms uint64, g *motion.Generator) Sample {
	st := g.State()
	return Sample{
		TimeMs:       ms,
		Target:       g.Target(),
		Position:     st.Position,
		Velocity:     st.Velocity,
		Acceleration: st.Acceleration,
		Finished:     st.Finished,
		Phase:        st.Phase,
		PhaseName:    st.Phase.String(),
	}
}

// CSVWriter writes samples as "time,position" rows.
type CSVWriter struct {
	w      *bufio.Writer
	closer io.Closer
	path   string
	header bool
	rows   int
}

// NewCSVWriter writes a sample table to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: bufio.NewWriter(w), path: "<stream>"}
}

// CreateCSV creates (or truncates) the file at path.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.SampleIOError(path, err)
	}
	return &CSVWriter{w: bufio.NewWriter(f), closer: f, path: path}, nil
}

// WriteSample appends one row, writing the header first.
func (c *CSVWriter) WriteSample(s Sample) error {
	if !c.header {
		if _, err := c.w.WriteString(Header + "\n"); err != nil {
			return errors.SampleIOError(c.path, err)
		}
		c.header = true
	}

	b := pool.GetByteBuffer()
	defer pool.PutByteBuffer(b)
	b.AppendUint(s.TimeMs)
	b.WriteByte(',')
	b.AppendFloat(s.Position)
	b.WriteByte('\n')
	if _, err := c.w.Write(b.Bytes()); err != nil {
		return errors.SampleIOError(c.path, err)
	}
	c.rows++
	return nil
}

// Rows returns the number of rows written.
func (c *CSVWriter) Rows() int { return c.rows }

// Flush writes buffered rows.
func (c *CSVWriter) Flush() error {
	if !c.header {
		// An empty table still carries its header.
		if _, err := c.w.WriteString(Header + "\n"); err != nil {
			return errors.SampleIOError(c.path, err)
		}
		c.header = true
	}
	if err := c.w.Flush(); err != nil {
		return errors.SampleIOError(c.path, err)
	}
	return nil
}

// Close flushes and closes the underlying file, if any.
func (c *CSVWriter) Close() error {
	err := c.Flush()
	if c.closer != nil {
		if cerr := c.closer.Close(); cerr != nil && err == nil {
			err = errors.SampleIOError(c.path, cerr)
		}
		c.closer = nil
	}
	return err
}

// SweepFileName names the table of one sweep run. index starts at 1.
func SweepFileName(index, maxVelocity, maxAcceleration int) string {
	return fmt.Sprintf("%03d_maxVelocity_%d_maxAcceleration_%d_motion_output.csv", index, maxVelocity, maxAcceleration)
}
