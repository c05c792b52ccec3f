// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package si7021

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

// User register values for each setting (bits 7 and 0 hold 3-setting,
// remaining bits at their reset value 0x3A).
var userRegFor = [4]byte{0xBB, 0xBA, 0x3B, 0x3A}

func frame(v uint16) []byte {
	f := []byte{byte(v >> 8), byte(v)}
	return append(f, Checksum(f))
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.delays = append(s.delays, d)
}

func newTestDev(t *testing.T, ops []i2ctest.IO, timing Timing) (*Dev, *i2ctest.Playback, *sleepRecorder) {
	t.Helper()
	bus := &i2ctest.Playback{Ops: ops}
	rec := &sleepRecorder{}
	d, err := NewI2C(bus, &Opts{Timing: timing, MaxHeaterLevel: 2, Sleep: rec.sleep})
	require.NoError(t, err)
	return d, bus, rec
}

func readUserReg(v byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{cmdReadUserReg}},
		{Addr: DefaultAddr, R: []byte{v}},
	}
}

type failingBus struct {
	err error
}

func (f *failingBus) String() string                       { return "failing" }
func (f *failingBus) Tx(addr uint16, w, r []byte) error    { return f.err }
func (f *failingBus) SetSpeed(freq physic.Frequency) error { return nil }

func TestChecksumReferenceVectors(t *testing.T) {
	cases := []struct {
		in  []byte
		crc byte
	}{
		{[]byte{0xDC}, 0x79},
		{[]byte{0x68, 0x3A}, 0x7C},
		{[]byte{0x4E, 0x85}, 0x6B},
		{[]byte{0x00, 0x00}, 0x00},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.crc, Checksum(tc.in), "data % X", tc.in)
		assert.Zero(t, Checksum(append(append([]byte{}, tc.in...), tc.crc)), "data+crc % X", tc.in)
	}
}

func TestChecksumSingleBitFlip(t *testing.T) {
	data := []byte{0x66, 0x4C, 0x4F}
	require.Zero(t, Checksum(data))
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte{}, data...)
			flipped[i] ^= 1 << bit
			assert.NotZero(t, Checksum(flipped), "byte %d bit %d", i, bit)
		}
	}
}

func TestHumidityConversion(t *testing.T) {
	assert.Equal(t, 0.0, humidityFromRaw(0))
	assert.Equal(t, 100.0, humidityFromRaw(0xFFFF))
	assert.Equal(t, 56.5, humidityFromRaw(0x8000))
	for v := 0; v <= 0xFFFF; v += 0x101 {
		rh := humidityFromRaw(uint16(v))
		assert.True(t, rh >= 0 && rh <= 100, "raw %#04x gave %f", v, rh)
	}
}

func TestTemperatureConversion(t *testing.T) {
	assert.InDelta(t, 19.045, temperatureFromRaw(0x6000), 1e-9)
	assert.InDelta(t, -46.85, temperatureFromRaw(0), 1e-9)
	assert.InDelta(t, 128.867, temperatureFromRaw(0xFFFF), 1e-3)
}

func TestHumidityUsesCurrentResolution(t *testing.T) {
	// RH+T maxima of the mode each setting writes to the register.
	want := [4]time.Duration{
		RH12T14: 9400 * time.Microsecond,  // code 11
		RH8T12:  10700 * time.Microsecond, // code 10
		RH10T13: 6900 * time.Microsecond,  // code 01
		RH11T11: 22800 * time.Microsecond, // code 00
	}
	for res := RH12T14; res <= RH11T11; res++ {
		t.Run(res.String(), func(t *testing.T) {
			ops := append(readUserReg(userRegFor[res]),
				i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdMeasureRHNoHold}},
				i2ctest.IO{Addr: DefaultAddr, R: frame(0x8000)},
			)
			d, bus, rec := newTestDev(t, ops, DatasheetTiming)

			rh, err := d.Humidity(false)
			require.NoError(t, err)
			assert.Equal(t, 56.5, rh)
			assert.Equal(t, []time.Duration{want[res]}, rec.delays)
			assert.NoError(t, bus.Close())
		})
	}
}

func TestHumidityHoldCommand(t *testing.T) {
	ops := append(readUserReg(userRegFor[RH12T14]),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdMeasureRHHold}},
		i2ctest.IO{Addr: DefaultAddr, R: frame(0)},
	)
	d, bus, _ := newTestDev(t, ops, ConservativeTiming)

	rh, err := d.Humidity(true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rh)
	assert.NoError(t, bus.Close())
}

func TestHumidityChecksumError(t *testing.T) {
	bad := frame(0x8000)
	bad[2] ^= 0x01
	ops := append(readUserReg(userRegFor[RH12T14]),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdMeasureRHNoHold}},
		i2ctest.IO{Addr: DefaultAddr, R: bad},
	)
	d, _, _ := newTestDev(t, ops, ConservativeTiming)

	_, err := d.Humidity(false)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestTemperature(t *testing.T) {
	ops := append(readUserReg(userRegFor[RH10T13]),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdMeasureTempHold}},
		i2ctest.IO{Addr: DefaultAddr, R: frame(0x6000)},
	)
	d, bus, rec := newTestDev(t, ops, DatasheetTiming)

	temp, err := d.Temperature(true, false)
	require.NoError(t, err)
	assert.InDelta(t, 19.045, temp, 1e-9)
	// Setting 2 writes code 01, a 12 bit temperature conversion.
	assert.Equal(t, []time.Duration{3800 * time.Microsecond}, rec.delays)
	assert.NoError(t, bus.Close())
}

func TestDatasheetTimingCoversDeviceMode(t *testing.T) {
	// Datasheet maxima indexed by the register code (bit 7, bit 0).
	worst := [4]ConversionTime{
		{RH: 12 * time.Millisecond, Temp: 10800 * time.Microsecond},
		{RH: 3100 * time.Microsecond, Temp: 3800 * time.Microsecond},
		{RH: 4500 * time.Microsecond, Temp: 6200 * time.Microsecond},
		{RH: 7 * time.Millisecond, Temp: 2400 * time.Microsecond},
	}
	for res := RH12T14; res <= RH11T11; res++ {
		reg := encodeResolution(0, res)
		code := reg>>7&1<<1 | reg&1
		need := worst[code]
		got := DatasheetTiming[res]
		assert.GreaterOrEqual(t, got.Temp, need.Temp, "%s (code %02b) temperature", res, code)
		assert.GreaterOrEqual(t, got.Full(), need.Full(), "%s (code %02b) RH+T", res, code)
	}
}

func TestTemperatureFromLastRH(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{cmdTempFromLastRH}},
		{Addr: DefaultAddr, R: frame(0x6000)},
	}
	d, bus, rec := newTestDev(t, ops, ConservativeTiming)

	_, err := d.Temperature(false, true)
	require.NoError(t, err)
	assert.Empty(t, rec.delays)
	assert.NoError(t, bus.Close())
}

func TestSense(t *testing.T) {
	ops := append(readUserReg(userRegFor[RH12T14]),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdMeasureRHNoHold}},
		i2ctest.IO{Addr: DefaultAddr, R: frame(0x8000)},
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdTempFromLastRH}},
		i2ctest.IO{Addr: DefaultAddr, R: frame(0x6000)},
	)
	d, bus, _ := newTestDev(t, ops, ConservativeTiming)

	var e physic.Env
	require.NoError(t, d.Sense(&e))
	assert.Equal(t, physic.RelativeHumidity(56.5*float64(physic.PercentRH)), e.Humidity)
	assert.InDelta(t, 19.045, e.Temperature.Celsius(), 1e-6)
	assert.NoError(t, bus.Close())
}

// hookBus runs onFrame once, right after the first 3 byte frame is read.
type hookBus struct {
	*i2ctest.Playback
	onFrame func()
}

func (h *hookBus) Tx(addr uint16, w, r []byte) error {
	err := h.Playback.Tx(addr, w, r)
	if len(r) == 3 && h.onFrame != nil {
		f := h.onFrame
		h.onFrame = nil
		f()
	}
	return err
}

func TestHumidityTemperatureHoldsHandle(t *testing.T) {
	ops := append(readUserReg(userRegFor[RH12T14]),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdMeasureRHNoHold}},
		i2ctest.IO{Addr: DefaultAddr, R: frame(0x8000)},
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdTempFromLastRH}},
		i2ctest.IO{Addr: DefaultAddr, R: frame(0x6000)},
		i2ctest.IO{Addr: DefaultAddr, W: []byte{0x84, 0xB8}},
		i2ctest.IO{Addr: DefaultAddr, R: []byte{0x20}},
	)
	bus := &hookBus{Playback: &i2ctest.Playback{Ops: ops, DontPanic: true}}
	d, err := NewI2C(bus, &Opts{Sleep: func(time.Duration) {}})
	require.NoError(t, err)

	// A second caller tries to use the handle between the RH frame and the
	// temperature read back.
	done := make(chan error, 1)
	bus.onFrame = func() {
		go func() {
			_, err := d.FirmwareRevision()
			done <- err
		}()
	}

	rh, temp, err := d.HumidityTemperature(false)
	require.NoError(t, err)
	assert.Equal(t, 56.5, rh)
	assert.InDelta(t, 19.045, temp, 1e-9)
	require.NoError(t, <-done)
	assert.NoError(t, bus.Close())
}

func TestResolutionRoundTrip(t *testing.T) {
	for res := RH12T14; res <= RH11T11; res++ {
		t.Run(res.String(), func(t *testing.T) {
			start := byte(0x3A)
			want := encodeResolution(start, res)
			ops := append(readUserReg(start),
				i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdWriteUserReg, want}},
			)
			ops = append(ops, readUserReg(want)...)
			d, bus, _ := newTestDev(t, ops, ConservativeTiming)

			require.NoError(t, d.SetResolution(res))
			got, err := d.Resolution()
			require.NoError(t, err)
			assert.Equal(t, res, got)
			assert.NoError(t, bus.Close())
		})
	}
}

func TestSetResolutionPreservesOtherBits(t *testing.T) {
	for _, reg := range []byte{0x00, 0xFF, 0x3A, 0x44} {
		for res := RH12T14; res <= RH11T11; res++ {
			out := encodeResolution(reg, res)
			assert.Equal(t, reg&0x7E, out&0x7E, "reg %#02x res %d", reg, res)
			assert.Equal(t, res, decodeResolution(out))
		}
	}
	// Setting 0 writes the complement 11 into bits 7 and 0.
	assert.Equal(t, byte(0x81), encodeResolution(0x00, RH12T14))
	assert.Equal(t, byte(0x00), encodeResolution(0x81, RH11T11))
}

func TestSetResolutionRange(t *testing.T) {
	d, bus, _ := newTestDev(t, nil, ConservativeTiming)

	err := d.SetResolution(4)
	assert.ErrorIs(t, err, ErrRange)
	assert.Zero(t, bus.Count)
}

func TestHeater(t *testing.T) {
	ops := append(readUserReg(0x3A),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdWriteUserReg, 0x3E}},
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdWriteHeaterReg, 2}},
	)
	ops = append(ops, readUserReg(0x3E)...)
	d, bus, _ := newTestDev(t, ops, ConservativeTiming)

	require.NoError(t, d.Heater(true, 2))
	on, err := d.HeaterEnabled()
	require.NoError(t, err)
	assert.True(t, on)
	assert.NoError(t, bus.Close())
}

func TestHeaterDisable(t *testing.T) {
	ops := append(readUserReg(0x3E),
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdWriteUserReg, 0x3A}},
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdWriteHeaterReg, 0}},
		i2ctest.IO{Addr: DefaultAddr, W: []byte{cmdReadHeaterReg}},
		i2ctest.IO{Addr: DefaultAddr, R: []byte{0xF0}},
	)
	d, bus, _ := newTestDev(t, ops, ConservativeTiming)

	require.NoError(t, d.Heater(false, 0))
	level, err := d.HeaterLevel()
	require.NoError(t, err)
	assert.Zero(t, level)
	assert.NoError(t, bus.Close())
}

func TestHeaterAboveCapDoesNoIO(t *testing.T) {
	d, bus, _ := newTestDev(t, nil, ConservativeTiming)

	err := d.Heater(true, 3)
	assert.ErrorIs(t, err, ErrRange)
	assert.Zero(t, bus.Count)
}

func TestNewI2CRejectsHeaterCap(t *testing.T) {
	_, err := NewI2C(&i2ctest.Playback{}, &Opts{MaxHeaterLevel: 16})
	assert.ErrorIs(t, err, ErrRange)

	d, err := NewI2C(&i2ctest.Playback{}, &Opts{MaxHeaterLevel: DeviceMaxHeaterLevel})
	require.NoError(t, err)
	assert.Equal(t, DeviceMaxHeaterLevel, d.MaxHeaterLevel())
}

func TestReset(t *testing.T) {
	ops := []i2ctest.IO{{Addr: DefaultAddr, W: []byte{cmdReset}}}
	d, bus, rec := newTestDev(t, ops, ConservativeTiming)

	require.NoError(t, d.Reset())
	assert.Equal(t, []time.Duration{15 * time.Millisecond}, rec.delays)
	assert.NoError(t, bus.Close())
}

// serialAnswers returns the two ID answers for serial 0x12345678_15FF9ABC.
func serialAnswers() ([]byte, []byte) {
	sn := []byte{0x12, 0x34, 0x56, 0x78, 0x15, 0xFF, 0x9A, 0xBC}
	var a []byte
	for i := 0; i < 4; i++ {
		a = append(a, sn[i], Checksum(sn[:i+1]))
	}
	b := []byte{sn[4], sn[5], Checksum(sn[4:6]), sn[6], sn[7], Checksum(sn[4:8])}
	return a, b
}

func serialOps(a, b []byte) []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{0xFA, 0x0F}},
		{Addr: DefaultAddr, R: a},
		{Addr: DefaultAddr, W: []byte{0xFC, 0xC9}},
		{Addr: DefaultAddr, R: b},
	}
}

func TestSerialNumber(t *testing.T) {
	a, b := serialAnswers()
	assert.Equal(t, []byte{0x12, 0x21, 0x34, 0xB6, 0x56, 0xC1, 0x78, 0x37}, a)
	assert.Equal(t, []byte{0x15, 0xFF, 0xB5, 0x9A, 0xBC, 0x87}, b)
	d, bus, _ := newTestDev(t, serialOps(a, b), ConservativeTiming)

	sn, err := d.SerialNumber()
	require.NoError(t, err)
	assert.Equal(t, Serial(0x1234567815FF9ABC), sn)
	assert.Equal(t, "Si7021", sn.Model())
	assert.Equal(t, "1234567815FF9ABC", sn.String())
	assert.NoError(t, bus.Close())
}

func TestSerialNumberChecksumWindows(t *testing.T) {
	// One CRC byte per validated window.
	corrupt := []struct {
		name   string
		first  bool
		offset int
	}{
		{"SNA3", true, 1},
		{"SNA2", true, 3},
		{"SNA1", true, 5},
		{"SNA0", true, 7},
		{"SNB3-2", false, 2},
		{"SNB1-0", false, 5},
	}
	for _, tc := range corrupt {
		t.Run(tc.name, func(t *testing.T) {
			a, b := serialAnswers()
			if tc.first {
				a[tc.offset] ^= 0x40
			} else {
				b[tc.offset] ^= 0x40
			}
			d, _, _ := newTestDev(t, serialOps(a, b), ConservativeTiming)

			sn, err := d.SerialNumber()
			assert.ErrorIs(t, err, ErrChecksum)
			assert.Zero(t, sn)
		})
	}
}

func TestFirmwareRevision(t *testing.T) {
	ops := []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{0x84, 0xB8}},
		{Addr: DefaultAddr, R: []byte{0x20}},
	}
	d, bus, _ := newTestDev(t, ops, ConservativeTiming)

	fw, err := d.FirmwareRevision()
	require.NoError(t, err)
	assert.Equal(t, "2.0", fw.String())
	assert.NoError(t, bus.Close())
}

func TestClosed(t *testing.T) {
	d, bus, _ := newTestDev(t, nil, ConservativeTiming)
	require.NoError(t, d.Halt())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Halt(), ErrClosed)
	assert.ErrorIs(t, d.Close(), ErrClosed)

	_, err := d.Humidity(false)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.Temperature(false, false)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.SerialNumber()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.Reset(), ErrClosed)
	assert.ErrorIs(t, d.SetResolution(RH12T14), ErrClosed)
	assert.Zero(t, bus.Count)
}

func TestTransportError(t *testing.T) {
	busErr := errors.New("i2c: remote I/O error")
	d, err := NewI2C(&failingBus{err: busErr}, nil)
	require.NoError(t, err)

	_, err = d.Humidity(false)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, busErr)
	assert.NotErrorIs(t, err, ErrChecksum)
}

func TestResolutionBits(t *testing.T) {
	rh, temp := RH8T12.Bits()
	assert.Equal(t, 8, rh)
	assert.Equal(t, 12, temp)
	assert.Equal(t, "RH11/T11", RH11T11.String())
	assert.Equal(t, "Resolution(7)", Resolution(7).String())
	assert.Equal(t, 200*time.Millisecond, ConservativeTiming[RH12T14].Full())
}
