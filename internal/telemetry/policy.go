// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import "time"

// Policy decides when to water.
type Policy struct {
	Threshold float64       // moisture percent below which the soil is dry
	Cooldown  time.Duration // minimum time between two pump runs
}

// DefaultPolicy waters below 10 % moisture at most every two hours.
var DefaultPolicy = Policy{Threshold: 10, Cooldown: 2 * time.Hour}

// ShouldPump reports whether the pump should run at now given the moisture
// reading and the time of the last run.
func (p Policy) ShouldPump(moisture float64, now, last time.Time) bool {
	return moisture < p.Threshold && now.Sub(last) > p.Cooldown
}
