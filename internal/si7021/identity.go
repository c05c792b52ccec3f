// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package si7021

import (
	"fmt"
)

// Serial is the 64 bit electronic serial number.
type Serial uint64

// Model decodes the device identification byte (SNB3).
func (s Serial) Model() string {
	switch byte(s >> 24) {
	case 0x00, 0xFF:
		return "engineering sample"
	case 0x0D:
		return "Si7013"
	case 0x14:
		return "Si7020"
	case 0x15:
		return "Si7021"
	default:
		return fmt.Sprintf("unknown (0x%02X)", byte(s>>24))
	}
}

func (s Serial) String() string {
	return fmt.Sprintf("%016X", uint64(s))
}

// Firmware is the firmware revision byte.
type Firmware byte

func (f Firmware) String() string {
	switch f {
	case 0xFF:
		return "1.0"
	case 0x20:
		return "2.0"
	default:
		return fmt.Sprintf("0x%02X", byte(f))
	}
}

// SerialNumber reads both halves of the electronic ID. Every CRC in the
// two answers is checked; no partial value is returned on failure.
func (d *Dev) SerialNumber() (Serial, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	// SNA3 CRC SNA2 CRC SNA1 CRC SNA0 CRC
	var a [8]byte
	if err := d.write(cmdReadIDFirst...); err != nil {
		return 0, fmt.Errorf("si7021: serial number: %w", err)
	}
	if err := d.read(a[:]); err != nil {
		return 0, fmt.Errorf("si7021: serial number: %w", err)
	}
	// SNB3 SNB2 CRC SNB1 SNB0 CRC
	var b [6]byte
	if err := d.write(cmdReadIDSecond...); err != nil {
		return 0, fmt.Errorf("si7021: serial number: %w", err)
	}
	if err := d.read(b[:]); err != nil {
		return 0, fmt.Errorf("si7021: serial number: %w", err)
	}
	if err := checkSerial(a, b); err != nil {
		return 0, fmt.Errorf("si7021: serial number: %w", err)
	}
	return Serial(uint64(a[0])<<56 | uint64(a[2])<<48 | uint64(a[4])<<40 | uint64(a[6])<<32 |
		uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[3])<<8 | uint64(b[4])), nil
}

// checkSerial verifies the cumulative CRC windows of both ID answers. In
// the first answer each CRC covers all preceding ID bytes.
func checkSerial(a [8]byte, b [6]byte) error {
	windows := [][]byte{
		{a[0], a[1]},
		{a[0], a[2], a[3]},
		{a[0], a[2], a[4], a[5]},
		{a[0], a[2], a[4], a[6], a[7]},
		{b[0], b[1], b[2]},
		{b[0], b[1], b[3], b[4], b[5]},
	}
	for i, w := range windows {
		if Checksum(w) != 0 {
			return fmt.Errorf("%w: ID window %d (% X)", ErrChecksum, i, w)
		}
	}
	return nil
}

// FirmwareRevision reads the firmware revision. The device sends no CRC
// for this answer.
func (d *Dev) FirmwareRevision() (Firmware, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	v, err := d.readByte(cmdFirmwareRev...)
	if err != nil {
		return 0, fmt.Errorf("si7021: firmware revision: %w", err)
	}
	return Firmware(v), nil
}
