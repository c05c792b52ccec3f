// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/field_computer/internal/config"
	"github.com/relabs-tech/field_computer/internal/telemetry"
)

func formatRecord(r telemetry.Record) string {
	return fmt.Sprintf(
		"[TELEM] %s id=%s temp=%6.2f°C rh=%6.2f%% light=%6.2f%% moisture=%6.2f%% pump=%d",
		r.Time().Format(time.RFC3339), r.ID, r.Temp, r.RH, r.Light, r.Moisture, r.Pump,
	)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}

	token := client.Subscribe(cfg.TopicTelemetry, cfg.MQTTQoS, func(_ mqtt.Client, msg mqtt.Message) {
		r, err := telemetry.Decode(msg.Payload())
		if err != nil {
			log.Printf("console: %v", err)
			return
		}
		fmt.Println(formatRecord(r))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTelemetry)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
