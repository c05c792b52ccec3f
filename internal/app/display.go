// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/field_computer/internal/config"
	"github.com/relabs-tech/field_computer/internal/telemetry"
)

// DisplayData holds the latest data for display
type DisplayData struct {
	mu   sync.RWMutex
	rec  telemetry.Record
	have bool
}

// displayLines renders a record as the four text lines of the OLED.
func displayLines(r telemetry.Record, have bool) []string {
	if !have {
		return []string{"Field station", "Waiting..."}
	}
	pump := "off"
	if r.Pump != telemetry.PumpIdle {
		pump = "ON"
	}
	return []string{
		fmt.Sprintf("T:%6.2f C", r.Temp),
		fmt.Sprintf("RH:%5.1f %%", r.RH),
		fmt.Sprintf("L:%3.0f%% M:%3.0f%%", r.Light, r.Moisture),
		fmt.Sprintf("Pump %s %s", pump, r.Time().Local().Format("15:04")),
	}
}

func drawLines(dev *ssd1306.Dev, lines []string) error {
	img := image1bit.NewVerticalLSB(dev.Bounds())

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(line)
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

// RunDisplay shows the latest telemetry on an SSD1306 on the SI7021 bus.
func RunDisplay() error {
	cfg := config.Get()
	if cfg.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("display disabled: DISPLAY_UPDATE_INTERVAL is not set")
	}

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.SI7021I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %s", cfg.SI7021I2CBus)

	data := &DisplayData{}
	if err := drawLines(dev, displayLines(data.rec, false)); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client, err := connectMQTT(cfg, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	token := client.Subscribe(cfg.TopicTelemetry, cfg.MQTTQoS, func(_ mqtt.Client, msg mqtt.Message) {
		r, err := telemetry.Decode(msg.Payload())
		if err != nil {
			log.Printf("display: %v", err)
			return
		}
		data.mu.Lock()
		data.rec = r
		data.have = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicTelemetry)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		rec, have := data.rec, data.have
		data.mu.RUnlock()

		if err := drawLines(dev, displayLines(rec, have)); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}
