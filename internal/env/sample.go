// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package env

import "time"

// Sample is one pass over the station sensors.
type Sample struct {
	Time time.Time `json:"time"`

	Temperature float64 `json:"temp_c"`   // °C, SI7021
	Humidity    float64 `json:"rh"`       // %, SI7021
	Light       float64 `json:"light"`    // % of full scale, MCP3008
	Moisture    float64 `json:"moisture"` // % of full scale, MCP3008
}
