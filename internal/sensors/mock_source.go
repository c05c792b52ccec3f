// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/field_computer/internal/env"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock source that generates smooth changing
// values, with moisture slowly drying out over about an hour.
func NewMockSource() Source {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) Next() (env.Sample, error) {
	t := m.now()
	elapsed := t.Sub(m.start).Seconds()

	return env.Sample{
		Time:        t,
		Temperature: 20 + 5*math.Sin(elapsed/600),
		Humidity:    55 + 10*math.Cos(elapsed/900),
		Light:       50 + 50*math.Sin(elapsed/3600),
		Moisture:    math.Max(0, 40-math.Mod(elapsed, 3600)/90),
	}, nil
}
