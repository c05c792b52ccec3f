// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration values.
type Config struct {
	// Station
	StationID string

	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string
	MQTTCACert           string // PEM root CA, enables TLS when set
	MQTTClientCert       string
	MQTTClientKey        string
	MQTTQoS              byte

	// Topics
	TopicTelemetry string

	// SI7021
	// Resolution: 0=RH12/T14, 1=RH8/T12, 2=RH10/T13, 3=RH11/T11
	// Timing: "conservative" or "datasheet"
	SI7021I2CBus       string
	SI7021I2CAddr      uint16
	SI7021Resolution   byte
	SI7021HeaterMax    byte
	SI7021Timing       string
	SI7021ResetOnStart bool

	// ADC (MCP3008)
	ADCSPIDevice       string
	ADCSPIHz           int64
	ADCVRef            float64
	ADCLightChannel    int
	ADCMoistureChannel int

	// Pump
	PumpGPIOPin         string // empty disables the pump
	PumpRunMS           int
	MoistureThreshold   float64
	PumpCooldownMinutes int

	// Timing
	SampleIntervalSeconds int

	// Web Server
	WebServerPort   int
	DebugServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds, 0 disables the display
}

// Package-level unexported variables for singleton pattern. External code
// must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a Config with every optional value set.
func Defaults() *Config {
	return &Config{
		StationID:             "field-station",
		MQTTClientIDProducer:  "field-producer",
		MQTTClientIDConsole:   "field-console",
		MQTTClientIDWeb:       "field-web",
		MQTTClientIDDisplay:   "field-display",
		MQTTQoS:               1,
		TopicTelemetry:        "telem",
		SI7021I2CBus:          "1",
		SI7021I2CAddr:         0x40,
		SI7021HeaterMax:       2,
		SI7021Timing:          "conservative",
		ADCSPIDevice:          "/dev/spidev0.0",
		ADCSPIHz:              1000000,
		ADCVRef:               3.3,
		ADCLightChannel:       1,
		ADCMoistureChannel:    0,
		PumpRunMS:             5000,
		MoistureThreshold:     10,
		PumpCooldownMinutes:   120,
		SampleIntervalSeconds: 600,
		WebServerPort:         8080,
		DebugServerPort:       8081,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseRange(key, value string, lo, hi int) (int, error) {
	val, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if val < lo || val > hi {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, lo, hi, val)
	}
	return val, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	case "STATION_ID":
		c.StationID = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CA_CERT":
		c.MQTTCACert = value
	case "MQTT_CLIENT_CERT":
		c.MQTTClientCert = value
	case "MQTT_CLIENT_KEY":
		c.MQTTClientKey = value
	case "MQTT_QOS":
		val, err := parseRange(key, value, 0, 2)
		if err != nil {
			return err
		}
		c.MQTTQoS = byte(val)

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value

	// SI7021
	case "SI7021_I2C_BUS":
		c.SI7021I2CBus = value
	case "SI7021_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 7)
		if err != nil {
			return fmt.Errorf("invalid SI7021_I2C_ADDR %q: %w", value, err)
		}
		c.SI7021I2CAddr = uint16(addr)
	case "SI7021_RESOLUTION":
		val, err := parseRange(key, value, 0, 3)
		if err != nil {
			return fmt.Errorf("%w (0=RH12/T14, 1=RH8/T12, 2=RH10/T13, 3=RH11/T11)", err)
		}
		c.SI7021Resolution = byte(val)
	case "SI7021_HEATER_MAX":
		val, err := parseRange(key, value, 0, 15)
		if err != nil {
			return err
		}
		c.SI7021HeaterMax = byte(val)
	case "SI7021_TIMING":
		if value != "conservative" && value != "datasheet" {
			return fmt.Errorf("SI7021_TIMING must be conservative or datasheet, got %q", value)
		}
		c.SI7021Timing = value
	case "SI7021_RESET_ON_START":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SI7021_RESET_ON_START %q: %w", value, err)
		}
		c.SI7021ResetOnStart = b

	// ADC
	case "ADC_SPI_DEVICE":
		c.ADCSPIDevice = value
	case "ADC_SPI_HZ":
		hz, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid ADC_SPI_HZ %q: %w", value, err)
		}
		if hz <= 0 || hz > 3600000 {
			return fmt.Errorf("ADC_SPI_HZ must be 1-3600000, got %d", hz)
		}
		c.ADCSPIHz = hz
	case "ADC_VREF":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ADC_VREF %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("ADC_VREF must be positive, got %v", v)
		}
		c.ADCVRef = v
	case "ADC_LIGHT_CHANNEL":
		val, err := parseRange(key, value, 0, 7)
		if err != nil {
			return err
		}
		c.ADCLightChannel = val
	case "ADC_MOISTURE_CHANNEL":
		val, err := parseRange(key, value, 0, 7)
		if err != nil {
			return err
		}
		c.ADCMoistureChannel = val

	// Pump
	case "PUMP_GPIO_PIN":
		c.PumpGPIOPin = value
	case "PUMP_RUN_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PUMP_RUN_MS %q: %w", value, err)
		}
		c.PumpRunMS = val
	case "MOISTURE_THRESHOLD":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid MOISTURE_THRESHOLD %q: %w", value, err)
		}
		c.MoistureThreshold = v
	case "PUMP_COOLDOWN_MINUTES":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PUMP_COOLDOWN_MINUTES %q: %w", value, err)
		}
		c.PumpCooldownMinutes = val

	// Timing
	case "SAMPLE_INTERVAL_SECONDS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL_SECONDS %q: %w", value, err)
		}
		c.SampleIntervalSeconds = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "DEBUG_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_SERVER_PORT %q: %w", value, err)
		}
		c.DebugServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTelemetry == "" {
		return fmt.Errorf("TOPIC_TELEMETRY is required")
	}
	if c.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL_SECONDS must be positive")
	}
	if c.ADCLightChannel == c.ADCMoistureChannel {
		return fmt.Errorf("ADC_LIGHT_CHANNEL and ADC_MOISTURE_CHANNEL must differ")
	}
	if c.PumpGPIOPin != "" && c.PumpRunMS <= 0 {
		return fmt.Errorf("PUMP_RUN_MS must be positive when PUMP_GPIO_PIN is set")
	}
	// Client certificate and key come as a pair.
	if (c.MQTTClientCert == "") != (c.MQTTClientKey == "") {
		return fmt.Errorf("MQTT_CLIENT_CERT and MQTT_CLIENT_KEY must be set together")
	}
	return nil
}

// SampleInterval returns the polling period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

// PumpRun returns how long one watering lasts.
func (c *Config) PumpRun() time.Duration {
	return time.Duration(c.PumpRunMS) * time.Millisecond
}

// PumpCooldown returns the minimum time between two waterings.
func (c *Config) PumpCooldown() time.Duration {
	return time.Duration(c.PumpCooldownMinutes) * time.Minute
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
