// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command si7021 resets the sensor and prints its identity and one reading.
package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/field_computer/internal/config"
	"github.com/relabs-tech/field_computer/internal/sensors"
)

func main() {
	configPath := flag.String("config", "./field_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Work on a copy so the loaded configuration stays as read.
	cfg := *config.Get()
	cfg.SI7021ResetOnStart = true

	dev, bus, err := sensors.OpenSI7021(&cfg)
	if err != nil {
		log.Fatalf("failed to open SI7021: %v", err)
	}
	defer bus.Close()
	defer dev.Close()

	sn, err := dev.SerialNumber()
	if err != nil {
		log.Fatalf("serial number: %v", err)
	}
	fw, err := dev.FirmwareRevision()
	if err != nil {
		log.Fatalf("firmware revision: %v", err)
	}
	log.Printf("%s serial %s (%s), firmware %s", dev, sn, sn.Model(), fw)

	rh, t, err := dev.HumidityTemperature(false)
	if err != nil {
		log.Fatalf("measure: %v", err)
	}
	log.Printf("humidity %.2f %%RH, temperature %.2f °C", rh, t)
}
