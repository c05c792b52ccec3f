// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/field_computer/internal/app"
	"github.com/relabs-tech/field_computer/internal/config"
)

func main() {
	configPath := flag.String("config", "./field_config.txt", "path to configuration file")
	mock := flag.Bool("mock", false, "use the mock sensor source instead of hardware")
	flag.Parse()

	log.Println("starting field-computer telemetry producer")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProducer(*mock); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
