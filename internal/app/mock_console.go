// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/field_computer/internal/sensors"
)

// RunMockConsole prints mock station samples without any hardware or broker.
func RunMockConsole() error {
	src := sensors.NewMockSource()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s, err := src.Next()
		if err != nil {
			return err
		}

		fmt.Printf(
			"TEMP=%6.2f  RH=%6.2f  LIGHT=%6.2f  MOISTURE=%6.2f\n",
			s.Temperature,
			s.Humidity,
			s.Light,
			s.Moisture,
		)
	}
	return nil
}
