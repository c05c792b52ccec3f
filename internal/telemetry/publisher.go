// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends records to one MQTT topic.
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewPublisher returns a publisher on an already connected client.
func NewPublisher(client mqtt.Client, topic string, qos byte) *Publisher {
	return &Publisher{client: client, topic: topic, qos: qos}
}

// Publish sends r rounded to two decimals and waits for the token.
func (p *Publisher) Publish(r Record) ([]byte, error) {
	payload, err := json.Marshal(r.Rounded(2))
	if err != nil {
		return nil, fmt.Errorf("telemetry: marshal: %w", err)
	}
	if token := p.client.Publish(p.topic, p.qos, false, payload); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: publish %s: %w", p.topic, token.Error())
	}
	return payload, nil
}

// Decode parses a telemetry payload.
func Decode(payload []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return Record{}, fmt.Errorf("telemetry: unmarshal: %w", err)
	}
	return r, nil
}
