// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package si7021

import (
	"fmt"
	"time"
)

// Resolution selects one of the four measurement resolution pairs.
type Resolution uint8

const (
	RH12T14 Resolution = iota // 12 bit RH, 14 bit temperature
	RH8T12                    // 8 bit RH, 12 bit temperature
	RH10T13                   // 10 bit RH, 13 bit temperature
	RH11T11                   // 11 bit RH, 11 bit temperature
)

var resolutionBits = [4][2]int{{12, 14}, {8, 12}, {10, 13}, {11, 11}}

// Bits returns the humidity and temperature bit widths.
func (r Resolution) Bits() (rh, temp int) {
	if r > RH11T11 {
		return 0, 0
	}
	return resolutionBits[r][0], resolutionBits[r][1]
}

func (r Resolution) String() string {
	rh, t := r.Bits()
	if rh == 0 {
		return fmt.Sprintf("Resolution(%d)", uint8(r))
	}
	return fmt.Sprintf("RH%d/T%d", rh, t)
}

// ConversionTime is the worst case conversion latency for one resolution.
type ConversionTime struct {
	RH   time.Duration
	Temp time.Duration
}

// Full is the delay for an RH measurement, which also converts temperature.
func (c ConversionTime) Full() time.Duration {
	return c.RH + c.Temp
}

// Timing is indexed by Resolution.
type Timing [4]ConversionTime

// ConservativeTiming waits 100 ms per conversion at every resolution.
var ConservativeTiming = Timing{
	{RH: 100 * time.Millisecond, Temp: 100 * time.Millisecond},
	{RH: 100 * time.Millisecond, Temp: 100 * time.Millisecond},
	{RH: 100 * time.Millisecond, Temp: 100 * time.Millisecond},
	{RH: 100 * time.Millisecond, Temp: 100 * time.Millisecond},
}

// deviceMaxConversion holds the datasheet maximum conversion times, indexed
// by the two bit code stored in the user register (bit 7, bit 0).
var deviceMaxConversion = [4]ConversionTime{
	{RH: 12 * time.Millisecond, Temp: 10800 * time.Microsecond},  // 00: RH12/T14
	{RH: 3100 * time.Microsecond, Temp: 3800 * time.Microsecond}, // 01: RH8/T12
	{RH: 4500 * time.Microsecond, Temp: 6200 * time.Microsecond}, // 10: RH10/T13
	{RH: 7 * time.Millisecond, Temp: 2400 * time.Microsecond},    // 11: RH11/T11
}

// DatasheetTiming uses the datasheet maxima of the conversion mode each
// setting selects. The register stores 3 - setting, so the rows run in
// reverse order of the register codes.
var DatasheetTiming = Timing{
	deviceMaxConversion[3],
	deviceMaxConversion[2],
	deviceMaxConversion[1],
	deviceMaxConversion[0],
}

// UserRegister returns the raw user register.
func (d *Dev) UserRegister() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	v, err := d.readByte(cmdReadUserReg)
	if err != nil {
		return 0, fmt.Errorf("si7021: read user register: %w", err)
	}
	return v, nil
}

// WriteUserRegister overwrites the user register.
func (d *Dev) WriteUserRegister(v byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.write(cmdWriteUserReg, v); err != nil {
		return fmt.Errorf("si7021: write user register: %w", err)
	}
	return nil
}

// Resolution returns the resolution stored in the user register.
func (d *Dev) Resolution() (Resolution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	r, err := d.resolution()
	if err != nil {
		return 0, fmt.Errorf("si7021: read resolution: %w", err)
	}
	return r, nil
}

func (d *Dev) resolution() (Resolution, error) {
	reg, err := d.readByte(cmdReadUserReg)
	if err != nil {
		return 0, err
	}
	return decodeResolution(reg), nil
}

// SetResolution updates bits 7 and 0 of the user register, leaving the
// other bits untouched.
func (d *Dev) SetResolution(r Resolution) error {
	if r > RH11T11 {
		return fmt.Errorf("%w: resolution %d not in 0-3", ErrRange, r)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	reg, err := d.readByte(cmdReadUserReg)
	if err != nil {
		return fmt.Errorf("si7021: set resolution: %w", err)
	}
	if err := d.write(cmdWriteUserReg, encodeResolution(reg, r)); err != nil {
		return fmt.Errorf("si7021: set resolution: %w", err)
	}
	return nil
}

// HeaterLevel returns the heater drive level (0-15).
func (d *Dev) HeaterLevel() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	v, err := d.readByte(cmdReadHeaterReg)
	if err != nil {
		return 0, fmt.Errorf("si7021: read heater register: %w", err)
	}
	return v & heaterLevelMask, nil
}

// HeaterEnabled reports the heater enable bit of the user register.
func (d *Dev) HeaterEnabled() (bool, error) {
	reg, err := d.UserRegister()
	if err != nil {
		return false, err
	}
	return reg&(1<<userRegHeaterBit) != 0, nil
}

// Heater switches the on-chip heater and sets its drive level. Levels
// above the configured cap are rejected before the bus is touched.
func (d *Dev) Heater(enable bool, level uint8) error {
	if level > d.maxHeater {
		return fmt.Errorf("%w: heater level %d above cap %d", ErrRange, level, d.maxHeater)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	reg, err := d.readByte(cmdReadUserReg)
	if err != nil {
		return fmt.Errorf("si7021: heater: %w", err)
	}
	if err := d.write(cmdWriteUserReg, setBit(reg, userRegHeaterBit, enable)); err != nil {
		return fmt.Errorf("si7021: heater: %w", err)
	}
	if err := d.write(cmdWriteHeaterReg, level); err != nil {
		return fmt.Errorf("si7021: heater level: %w", err)
	}
	return nil
}

// MaxHeaterLevel returns the heater cap enforced by Heater.
func (d *Dev) MaxHeaterLevel() uint8 {
	return d.maxHeater
}

// The register holds the complement of the setting: 00 is the highest
// resolution.
func decodeResolution(reg byte) Resolution {
	return Resolution(3 - resolutionCode(reg))
}

// resolutionCode extracts the two bit field, bit 7 as MSB and bit 0 as LSB.
func resolutionCode(reg byte) byte {
	return reg>>userRegResLSBBit&1 | (reg>>userRegResMSBBit&1)<<1
}

func encodeResolution(reg byte, r Resolution) byte {
	v := 3 - byte(r)
	reg = setBit(reg, userRegResMSBBit, v>>1&1 == 1)
	return setBit(reg, userRegResLSBBit, v&1 == 1)
}

func setBit(b byte, bit uint, on bool) byte {
	mask := byte(1) << bit
	b &^= mask
	if on {
		b |= mask
	}
	return b
}
