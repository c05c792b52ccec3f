// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relabs-tech/field_computer/internal/config"
	"github.com/relabs-tech/field_computer/internal/telemetry"
)

// latest keeps the most recent telemetry record.
type latest struct {
	mu     sync.RWMutex
	rec    telemetry.Record
	have   bool
	total  prometheus.Counter
	errors prometheus.Counter
}

func newLatest() *latest {
	return &latest{
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "field",
			Subsystem: "telemetry",
			Name:      "messages_total",
			Help:      "Telemetry messages received.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "field",
			Subsystem: "telemetry",
			Name:      "decode_errors_total",
			Help:      "Telemetry messages that could not be decoded.",
		}),
	}
}

func (l *latest) update(payload []byte) error {
	r, err := telemetry.Decode(payload)
	if err != nil {
		l.errors.Inc()
		return err
	}
	l.total.Inc()
	l.mu.Lock()
	l.rec = r
	l.have = true
	l.mu.Unlock()
	return nil
}

func (l *latest) get() (telemetry.Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rec, l.have
}

// register adds one gauge per reading to reg.
func (l *latest) register(reg prometheus.Registerer) {
	gauge := func(subsystem, name string, value func(telemetry.Record) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sensors",
			Subsystem: subsystem,
			Name:      name,
		}, func() float64 {
			r, _ := l.get()
			return value(r)
		})
	}
	reg.MustRegister(
		l.total,
		l.errors,
		gauge("si7021", "temperature_celsius", func(r telemetry.Record) float64 { return r.Temp }),
		gauge("si7021", "humidity_percent", func(r telemetry.Record) float64 { return r.RH }),
		gauge("mcp3008", "light_percent", func(r telemetry.Record) float64 { return r.Light }),
		gauge("mcp3008", "moisture_percent", func(r telemetry.Record) float64 { return r.Moisture }),
		gauge("pump", "state", func(r telemetry.Record) float64 { return float64(r.Pump) }),
	)
}

func (l *latest) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	rec, ok := l.get()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rec); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// newWebMux wires the API, the metrics endpoint and the static files.
func newWebMux(l *latest, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/telemetry", l.handleTelemetry)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

func RunWeb() error {
	cfg := config.Get()
	l := newLatest()
	reg := prometheus.NewRegistry()
	l.register(reg)

	client, err := connectMQTT(cfg, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicTelemetry, cfg.MQTTQoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := l.update(msg.Payload()); err != nil {
			log.Printf("MQTT payload unmarshal error: %v", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", cfg.TopicTelemetry)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(l, reg))
}
