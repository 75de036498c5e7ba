// Setpoint line output
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package serial

import (
	"io"

	"motiongen/pkg/errors"
	"motiongen/pkg/pool"
	"motiongen/pkg/sample"
)

// SetpointWriter writes one "T<ms> P<pos> V<vel> A<acc>" line per sample.
// Values use the shortest representation that round-trips.
type SetpointWriter struct {
	w     io.Writer
	lines uint64
}

// NewSetpointWriter writes setpoint lines to w, usually a *Port.
func NewSetpointWriter(w io.Writer) *SetpointWriter {
	return &SetpointWriter{w: w}
}

// FormatSetpoint appends the setpoint line for s to b.
func FormatSetpoint(b *pool.ByteBuffer, s sample.Sample) {
	b.WriteByte('T')
	b.AppendUint(s.TimeMs)
	b.WriteString(" P")
	b.AppendFloat(s.Position)
	b.WriteString(" V")
	b.AppendFloat(s.Velocity)
	b.WriteString(" A")
	b.AppendFloat(s.Acceleration)
	b.WriteByte('\n')
}

// WriteSample writes the line for s in a single Write call.
func (sw *SetpointWriter) WriteSample(s sample.Sample) error {
	b := pool.GetByteBuffer()
	defer pool.PutByteBuffer(b)

	FormatSetpoint(b, s)
	if _, err := sw.w.Write(b.Bytes()); err != nil {
		if errors.Is(err, errors.ErrTransport) {
			return err
		}
		return errors.TransportError("write setpoint", err)
	}
	sw.lines++
	return nil
}

// Lines returns the number of lines written.
func (sw *SetpointWriter) Lines() uint64 {
	return sw.lines
}
