// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "field_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# field station
STATION_ID = MC-1126-1-1
MQTT_BROKER=ssl://example.iot.local:8883
MQTT_CA_CERT=/home/pi/mc/root.pem
MQTT_CLIENT_CERT=/home/pi/mc/cert.pem
MQTT_CLIENT_KEY=/home/pi/mc/private.pem
SI7021_I2C_ADDR=0x40
SI7021_RESOLUTION=2
SI7021_TIMING=datasheet
SI7021_RESET_ON_START=true
PUMP_GPIO_PIN=GPIO13
SAMPLE_INTERVAL_SECONDS=60
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "MC-1126-1-1", cfg.StationID)
	assert.Equal(t, "ssl://example.iot.local:8883", cfg.MQTTBroker)
	assert.Equal(t, uint16(0x40), cfg.SI7021I2CAddr)
	assert.Equal(t, byte(2), cfg.SI7021Resolution)
	assert.Equal(t, "datasheet", cfg.SI7021Timing)
	assert.True(t, cfg.SI7021ResetOnStart)
	assert.Equal(t, "GPIO13", cfg.PumpGPIOPin)
	assert.Equal(t, time.Minute, cfg.SampleInterval())

	// Defaults survive.
	assert.Equal(t, "telem", cfg.TopicTelemetry)
	assert.Equal(t, byte(2), cfg.SI7021HeaterMax)
	assert.Equal(t, 5*time.Second, cfg.PumpRun())
	assert.Equal(t, 2*time.Hour, cfg.PumpCooldown())
	assert.Equal(t, 10.0, cfg.MoistureThreshold)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"missing broker":      "TOPIC_TELEMETRY=telem\n",
		"unknown key":         "MQTT_BROKER=tcp://localhost:1883\nFOO=1\n",
		"no equals":           "MQTT_BROKER\n",
		"resolution range":    "MQTT_BROKER=tcp://localhost:1883\nSI7021_RESOLUTION=4\n",
		"heater range":        "MQTT_BROKER=tcp://localhost:1883\nSI7021_HEATER_MAX=16\n",
		"address range":       "MQTT_BROKER=tcp://localhost:1883\nSI7021_I2C_ADDR=0x80\n",
		"timing":              "MQTT_BROKER=tcp://localhost:1883\nSI7021_TIMING=fast\n",
		"same adc channels":   "MQTT_BROKER=tcp://localhost:1883\nADC_LIGHT_CHANNEL=0\n",
		"cert without key":    "MQTT_BROKER=tcp://localhost:1883\nMQTT_CLIENT_CERT=cert.pem\n",
		"zero interval":       "MQTT_BROKER=tcp://localhost:1883\nSAMPLE_INTERVAL_SECONDS=0\n",
		"bad qos":             "MQTT_BROKER=tcp://localhost:1883\nMQTT_QOS=3\n",
		"pump without run ms": "MQTT_BROKER=tcp://localhost:1883\nPUMP_GPIO_PIN=GPIO13\nPUMP_RUN_MS=0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestGlobalCopyLeavesSingleton(t *testing.T) {
	require.NoError(t, InitGlobal(writeConfig(t, "MQTT_BROKER=tcp://localhost:1883\nSI7021_RESET_ON_START=false\n")))

	// Programs that tweak settings for themselves work on a copy.
	c := *Get()
	c.SI7021ResetOnStart = true
	c.SI7021HeaterMax = 15

	assert.False(t, Get().SI7021ResetOnStart)
	assert.Equal(t, byte(2), Get().SI7021HeaterMax)
}
