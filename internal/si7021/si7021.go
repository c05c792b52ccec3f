// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package si7021 drives the Silicon Labs Si7021 humidity and temperature
// sensor over I²C.
//
// Every measurement is a write/delay/read exchange. The delay is derived
// from the resolution currently stored in the user register, which is
// queried on each call. Measurement and identity frames are validated with
// the device CRC-8 before they are converted.
package si7021

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddr is the fixed I²C address of the sensor.
const DefaultAddr uint16 = 0x40

// DeviceMaxHeaterLevel is the highest heater setting the device accepts
// (about 94 mA).
const DeviceMaxHeaterLevel uint8 = 15

// Commands.
const (
	cmdMeasureRHHold     = 0xE5
	cmdMeasureRHNoHold   = 0xF5
	cmdMeasureTempHold   = 0xE3
	cmdMeasureTempNoHold = 0xF3
	cmdTempFromLastRH    = 0xE0
	cmdReset             = 0xFE
	cmdWriteUserReg      = 0xE6
	cmdReadUserReg       = 0xE7
	cmdWriteHeaterReg    = 0x51
	cmdReadHeaterReg     = 0x11
)

var (
	cmdReadIDFirst   = []byte{0xFA, 0x0F}
	cmdReadIDSecond  = []byte{0xFC, 0xC9}
	cmdFirmwareRev   = []byte{0x84, 0xB8}
	heaterLevelMask  = byte(0x0F)
	resetTime        = 15 * time.Millisecond
	userRegHeaterBit = uint(2)
	userRegResMSBBit = uint(7)
	userRegResLSBBit = uint(0)
)

var (
	// ErrTransport wraps every failure reported by the underlying bus.
	ErrTransport = errors.New("si7021: transport error")
	// ErrChecksum is returned when a frame fails CRC validation.
	ErrChecksum = errors.New("si7021: checksum mismatch")
	// ErrRange is returned for a resolution or heater level out of range.
	ErrRange = errors.New("si7021: value out of range")
	// ErrClosed is returned for any operation on a closed device.
	ErrClosed = errors.New("si7021: device closed")
)

// Opts holds the driver configuration.
type Opts struct {
	// Addr is the I²C address. Zero selects DefaultAddr.
	Addr uint16
	// Timing is the conversion delay table.
	Timing Timing
	// MaxHeaterLevel caps the heater setting accepted by Heater.
	// It must not exceed DeviceMaxHeaterLevel.
	MaxHeaterLevel uint8
	// Sleep waits out conversion and reset delays. Nil selects time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOpts uses the conservative timing table and caps the heater at
// level 2 (about 15 mA).
var DefaultOpts = Opts{
	Addr:           DefaultAddr,
	Timing:         ConservativeTiming,
	MaxHeaterLevel: 2,
}

// Dev is a handle to one Si7021.
type Dev struct {
	mu        sync.Mutex
	d         *i2c.Dev
	timing    Timing
	maxHeater uint8
	sleep     func(time.Duration)
	closed    bool
}

// NewI2C returns a driver for the sensor on bus b. A nil opts selects
// DefaultOpts. No I/O is performed.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.MaxHeaterLevel > DeviceMaxHeaterLevel {
		return nil, fmt.Errorf("%w: heater cap %d exceeds device maximum %d", ErrRange, opts.MaxHeaterLevel, DeviceMaxHeaterLevel)
	}
	addr := opts.Addr
	if addr == 0 {
		addr = DefaultAddr
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	t := opts.Timing
	if t == (Timing{}) {
		t = ConservativeTiming
	}
	return &Dev{
		d:         &i2c.Dev{Bus: b, Addr: addr},
		timing:    t,
		maxHeater: opts.MaxHeaterLevel,
		sleep:     sleep,
	}, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("SI7021{%s}", d.d)
}

// Halt implements conn.Resource. The sensor idles between conversions, so
// there is nothing to stop.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// Close invalidates the handle. The bus itself stays owned by the caller.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return nil
}

// Reset issues a soft reset and waits for the device to power up again.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.write(cmdReset); err != nil {
		return fmt.Errorf("si7021: reset: %w", err)
	}
	d.sleep(resetTime)
	return nil
}

// Humidity starts a relative humidity conversion and returns the result in
// percent, clamped to [0, 100]. The device also converts temperature during
// this measurement; it can be fetched afterwards with
// Temperature(hold, true).
func (d *Dev) Humidity(hold bool) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	return d.humidity(hold)
}

// Temperature returns the temperature in degrees Celsius. When fromLastRH
// is set the value converted during the previous Humidity call is read
// back without waiting; the caller must make sure such a call happened.
func (d *Dev) Temperature(hold, fromLastRH bool) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	return d.temperature(hold, fromLastRH)
}

// HumidityTemperature runs one RH conversion and reads back the temperature
// converted with it. The handle stays locked across both exchanges, so no
// other conversion on this handle can land in between.
func (d *Dev) HumidityTemperature(hold bool) (rh, temp float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, 0, ErrClosed
	}
	if rh, err = d.humidity(hold); err != nil {
		return 0, 0, err
	}
	if temp, err = d.temperature(hold, true); err != nil {
		return 0, 0, err
	}
	return rh, temp, nil
}

// Sense reads humidity and the temperature converted with it.
func (d *Dev) Sense(e *physic.Env) error {
	rh, t, err := d.HumidityTemperature(false)
	if err != nil {
		return err
	}
	e.Humidity = physic.RelativeHumidity(rh * float64(physic.PercentRH))
	e.Temperature = physic.ZeroCelsius + physic.Temperature(t*float64(physic.Kelvin))
	return nil
}

func (d *Dev) humidity(hold bool) (float64, error) {
	res, err := d.resolution()
	if err != nil {
		return 0, fmt.Errorf("si7021: humidity: %w", err)
	}
	cmd := byte(cmdMeasureRHNoHold)
	if hold {
		cmd = cmdMeasureRHHold
	}
	raw, err := d.measure(cmd, d.timing[res].Full())
	if err != nil {
		return 0, fmt.Errorf("si7021: humidity: %w", err)
	}
	return humidityFromRaw(raw), nil
}

func (d *Dev) temperature(hold, fromLastRH bool) (float64, error) {
	cmd := byte(cmdTempFromLastRH)
	var delay time.Duration
	if !fromLastRH {
		res, err := d.resolution()
		if err != nil {
			return 0, fmt.Errorf("si7021: temperature: %w", err)
		}
		cmd = cmdMeasureTempNoHold
		if hold {
			cmd = cmdMeasureTempHold
		}
		delay = d.timing[res].Temp
	}
	raw, err := d.measure(cmd, delay)
	if err != nil {
		return 0, fmt.Errorf("si7021: temperature: %w", err)
	}
	return temperatureFromRaw(raw), nil
}

// measure writes cmd, waits delay and reads back one checked 16 bit frame.
func (d *Dev) measure(cmd byte, delay time.Duration) (uint16, error) {
	if err := d.write(cmd); err != nil {
		return 0, err
	}
	if delay > 0 {
		d.sleep(delay)
	}
	var frame [3]byte // msb, lsb, crc
	if err := d.read(frame[:]); err != nil {
		return 0, err
	}
	if Checksum(frame[:]) != 0 {
		return 0, fmt.Errorf("%w: frame % X", ErrChecksum, frame)
	}
	return uint16(frame[0])<<8 | uint16(frame[1]), nil
}

func (d *Dev) write(w ...byte) error {
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("%w: write % X: %w", ErrTransport, w, err)
	}
	return nil
}

func (d *Dev) read(r []byte) error {
	if err := d.d.Tx(nil, r); err != nil {
		return fmt.Errorf("%w: read %d bytes: %w", ErrTransport, len(r), err)
	}
	return nil
}

func (d *Dev) readByte(w ...byte) (byte, error) {
	if err := d.write(w...); err != nil {
		return 0, err
	}
	var b [1]byte
	if err := d.read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func humidityFromRaw(v uint16) float64 {
	rh := 125*float64(v)/65536 - 6
	switch {
	case rh < 0:
		return 0
	case rh > 100:
		return 100
	}
	return rh
}

func temperatureFromRaw(v uint16) float64 {
	return 175.72*float64(v)/65536 - 46.85
}
