// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry defines the record published by the field station and
// the MQTT publisher that sends it.
package telemetry

import (
	"math"
	"time"
)

// Pump values carried in Record.Pump.
const (
	PumpIdle    = 0
	PumpRunning = 10
)

// Record is one telemetry message.
type Record struct {
	ID       string  `json:"id"`
	TS       float64 `json:"ts"`       // POSIX seconds, UTC
	Temp     float64 `json:"temp"`     // °C
	RH       float64 `json:"rh"`       // %
	Light    float64 `json:"light"`    // % of full scale
	Moisture float64 `json:"moisture"` // % of full scale
	Pump     int     `json:"pump"`
}

// Timestamp converts t to the TS field format.
func Timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Time returns TS as a time.Time.
func (r Record) Time() time.Time {
	sec, frac := math.Modf(r.TS)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// Rounded returns r with its readings rounded to prec decimals.
func (r Record) Rounded(prec int) Record {
	r.Temp = Round(r.Temp, prec)
	r.RH = Round(r.RH, prec)
	r.Light = Round(r.Light, prec)
	r.Moisture = Round(r.Moisture, prec)
	return r
}

// Round returns the half away from zero rounded value of x with prec precision.
//
// Special cases are:
//
//	Round(±0) = +0
//	Round(±Inf) = ±Inf
//	Round(NaN) = NaN
func Round(x float64, prec int) float64 {
	if x == 0 {
		// Make sure zero is returned
		// without the negative bit set.
		return 0
	}
	// Fast path for positive precision on integers.
	if prec >= 0 && x == math.Trunc(x) {
		return x
	}
	pow := math.Pow10(prec)
	intermed := x * pow
	if math.IsInf(intermed, 0) {
		return x
	}
	if x < 0 {
		x = math.Ceil(intermed - 0.5)
	} else {
		x = math.Floor(intermed + 0.5)
	}

	if x == 0 {
		return 0
	}

	return x / pow
}
