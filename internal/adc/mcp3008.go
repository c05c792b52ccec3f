// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package adc reads the MCP3008 10 bit SPI ADC that carries the light and
// soil moisture probes.
package adc

import (
	"errors"
	"fmt"
)

// ErrChannel is returned for a channel outside 0-7.
var ErrChannel = errors.New("adc: channel out of range")

// Conn is the part of a periph spi.Conn used by the ADC.
type Conn interface {
	Tx(w, r []byte) error
}

// Opts configures the probe wiring.
type Opts struct {
	VRef            float64
	LightChannel    int
	MoistureChannel int
}

// DefaultOpts matches the field station wiring: moisture on CH0, light on
// CH1, 3.3 V reference.
var DefaultOpts = Opts{
	VRef:            3.3,
	LightChannel:    1,
	MoistureChannel: 0,
}

// MCP3008 is a handle to the converter.
type MCP3008 struct {
	c    Conn
	opts Opts
}

// New returns an MCP3008 on c. A nil opts selects DefaultOpts.
func New(c Conn, opts *Opts) (*MCP3008, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.VRef <= 0 {
		return nil, fmt.Errorf("adc: invalid reference voltage %v", opts.VRef)
	}
	for _, ch := range []int{opts.LightChannel, opts.MoistureChannel} {
		if ch < 0 || ch > 7 {
			return nil, fmt.Errorf("%w: %d", ErrChannel, ch)
		}
	}
	return &MCP3008{c: c, opts: *opts}, nil
}

// Raw returns the 10 bit single-ended conversion of ch.
func (m *MCP3008) Raw(ch int) (uint16, error) {
	if ch < 0 || ch > 7 {
		return 0, fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	// Start bit, single-ended + channel in the high nibble, one clock byte.
	w := []byte{1, byte(8+ch) << 4, 0}
	r := make([]byte, len(w))
	if err := m.c.Tx(w, r); err != nil {
		return 0, fmt.Errorf("adc: channel %d: %w", ch, err)
	}
	return uint16(r[1]&3)<<8 | uint16(r[2]), nil
}

// Channel returns the voltage on ch.
func (m *MCP3008) Channel(ch int) (float64, error) {
	raw, err := m.Raw(ch)
	if err != nil {
		return 0, err
	}
	return float64(raw) * m.opts.VRef / 1023, nil
}

// Light returns the light probe as a percentage of full scale.
func (m *MCP3008) Light() (float64, error) {
	return m.percent(m.opts.LightChannel)
}

// Moisture returns the soil moisture probe as a percentage of full scale.
func (m *MCP3008) Moisture() (float64, error) {
	return m.percent(m.opts.MoistureChannel)
}

func (m *MCP3008) percent(ch int) (float64, error) {
	v, err := m.Channel(ch)
	if err != nil {
		return 0, err
	}
	return v / m.opts.VRef * 100, nil
}
