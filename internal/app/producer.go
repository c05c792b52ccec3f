// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/field_computer/internal/config"
	"github.com/relabs-tech/field_computer/internal/env"
	"github.com/relabs-tech/field_computer/internal/sensors"
	"github.com/relabs-tech/field_computer/internal/telemetry"
)

// recordPublisher is the part of telemetry.Publisher the loop needs.
type recordPublisher interface {
	Publish(telemetry.Record) ([]byte, error)
}

// waterer runs the pump for a fixed time.
type waterer interface {
	Run(ctx context.Context, d time.Duration) error
}

// loop is one station polling loop.
type loop struct {
	id       string
	src      sensors.Source
	pub      recordPublisher
	pump     waterer // nil when no pump is wired
	policy   telemetry.Policy
	pumpRun  time.Duration
	edgeGap  time.Duration
	now      func() time.Time
	lastPump time.Time
}

func (l *loop) record(s env.Sample, t time.Time, pump int) telemetry.Record {
	return telemetry.Record{
		ID:       l.id,
		TS:       telemetry.Timestamp(t),
		Temp:     s.Temperature,
		RH:       s.Humidity,
		Light:    s.Light,
		Moisture: s.Moisture,
		Pump:     pump,
	}
}

func (l *loop) publish(r telemetry.Record) {
	payload, err := l.pub.Publish(r)
	if err != nil {
		log.Printf("producer: %v", err)
		return
	}
	log.Printf("producer: published %s", payload)
}

// tick samples once, waters if the policy says so and publishes. When the
// pump runs, a pump=0 and a pump=10 record are sent first so charts show
// clean edges.
func (l *loop) tick(ctx context.Context) error {
	s, err := l.src.Next()
	if err != nil {
		return err
	}

	if l.pump != nil && l.policy.ShouldPump(s.Moisture, l.now(), l.lastPump) {
		l.publish(l.record(s, l.now(), telemetry.PumpIdle))
		select {
		case <-time.After(l.edgeGap):
		case <-ctx.Done():
			return ctx.Err()
		}
		t := l.now()
		l.publish(l.record(s, t, telemetry.PumpRunning))
		l.lastPump = t

		log.Printf("producer: moisture %.2f%% below %.2f%%, running pump for %s", s.Moisture, l.policy.Threshold, l.pumpRun)
		if err := l.pump.Run(ctx, l.pumpRun); err != nil {
			log.Printf("producer: pump: %v", err)
		}
	}

	l.publish(l.record(s, l.now(), telemetry.PumpIdle))
	return nil
}

// RunProducer samples the station every SAMPLE_INTERVAL_SECONDS and
// publishes telemetry until SIGINT/SIGTERM. With mock set no hardware is
// opened and the pump is never driven.
func RunProducer(mock bool) error {
	log.Println("starting field-station producer")

	cfg := config.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := &loop{
		id:      cfg.StationID,
		policy:  telemetry.Policy{Threshold: cfg.MoistureThreshold, Cooldown: cfg.PumpCooldown()},
		pumpRun: cfg.PumpRun(),
		edgeGap: 500 * time.Millisecond,
		now:     time.Now,
	}
	// The cooldown starts at boot so a restart never waters twice.
	l.lastPump = l.now()

	if mock {
		log.Println("using mock sensor source")
		l.src = sensors.NewMockSource()
	} else {
		st, err := sensors.OpenStation(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		l.src = st
		if st.Pump != nil {
			l.pump = st.Pump
		}
	}

	client, err := connectMQTT(cfg, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	l.pub = telemetry.NewPublisher(client, cfg.TopicTelemetry, cfg.MQTTQoS)

	log.Printf("producer: publishing to %s every %s", cfg.TopicTelemetry, cfg.SampleInterval())

	ticker := time.NewTicker(cfg.SampleInterval())
	defer ticker.Stop()

	for {
		if err := l.tick(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("producer: sample: %v", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Println("producer: shutting down")
			return nil
		}
	}
	log.Println("producer: shutting down")
	return nil
}
