// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"testing"

	"github.com/relabs-tech/field_computer/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

func TestDisplayLines(t *testing.T) {
	assert.Equal(t, []string{"Field station", "Waiting..."}, displayLines(telemetry.Record{}, false))

	lines := displayLines(telemetry.Record{Temp: 19.25, RH: 56.5, Light: 40, Moisture: 8, Pump: telemetry.PumpRunning}, true)
	assert.Len(t, lines, 4)
	assert.Equal(t, "T: 19.25 C", lines[0])
	assert.Equal(t, "RH: 56.5 %", lines[1])
	assert.Equal(t, "L: 40% M:  8%", lines[2])
	assert.Contains(t, lines[3], "Pump ON")
}
