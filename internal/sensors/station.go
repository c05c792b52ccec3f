// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/relabs-tech/field_computer/internal/adc"
	"github.com/relabs-tech/field_computer/internal/config"
	"github.com/relabs-tech/field_computer/internal/env"
	"github.com/relabs-tech/field_computer/internal/pump"
	"github.com/relabs-tech/field_computer/internal/si7021"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Source is anything that can provide samples over time.
type Source interface {
	Next() (env.Sample, error)
}

// Station owns the field station hardware.
type Station struct {
	i2cBus  i2c.BusCloser
	spiPort spi.PortCloser

	SI7021 *si7021.Dev
	ADC    *adc.MCP3008
	Pump   *pump.Pump // nil when no pump pin is configured
}

// SI7021Opts builds the driver options from the configuration.
func SI7021Opts(cfg *config.Config) *si7021.Opts {
	opts := si7021.DefaultOpts
	opts.Addr = cfg.SI7021I2CAddr
	opts.MaxHeaterLevel = cfg.SI7021HeaterMax
	if cfg.SI7021Timing == "datasheet" {
		opts.Timing = si7021.DatasheetTiming
	}
	return &opts
}

// OpenSI7021 opens the configured I²C bus and applies the configured
// resolution. The returned bus must be closed by the caller after the
// device.
func OpenSI7021(cfg *config.Config) (*si7021.Dev, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.SI7021I2CBus)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open I2C bus %q: %w", si7021.ErrTransport, cfg.SI7021I2CBus, err)
	}
	dev, err := si7021.NewI2C(bus, SI7021Opts(cfg))
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	if cfg.SI7021ResetOnStart {
		if err := dev.Reset(); err != nil {
			bus.Close()
			return nil, nil, err
		}
	}
	if err := dev.SetResolution(si7021.Resolution(cfg.SI7021Resolution)); err != nil {
		bus.Close()
		return nil, nil, err
	}
	log.Printf("SI7021: %s ready, resolution %s", dev, si7021.Resolution(cfg.SI7021Resolution))
	return dev, bus, nil
}

// OpenStation initializes every sensor named in the configuration.
func OpenStation(cfg *config.Config) (*Station, error) {
	dev, bus, err := OpenSI7021(cfg)
	if err != nil {
		return nil, err
	}
	s := &Station{i2cBus: bus, SI7021: dev}

	if sn, err := dev.SerialNumber(); err != nil {
		log.Printf("SI7021: WARNING: serial number: %v", err)
	} else {
		log.Printf("SI7021: serial %s (%s)", sn, sn.Model())
	}
	if fw, err := dev.FirmwareRevision(); err != nil {
		log.Printf("SI7021: WARNING: firmware revision: %v", err)
	} else {
		log.Printf("SI7021: firmware %s", fw)
	}

	port, err := spireg.Open(cfg.ADCSPIDevice)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("ADC SPI open (%s): %w", cfg.ADCSPIDevice, err)
	}
	s.spiPort = port
	conn, err := port.Connect(physic.Frequency(cfg.ADCSPIHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("ADC SPI connect: %w", err)
	}
	s.ADC, err = adc.New(conn, &adc.Opts{
		VRef:            cfg.ADCVRef,
		LightChannel:    cfg.ADCLightChannel,
		MoistureChannel: cfg.ADCMoistureChannel,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	log.Printf("ADC: MCP3008 on %s at %d Hz", cfg.ADCSPIDevice, cfg.ADCSPIHz)

	if cfg.PumpGPIOPin != "" {
		pin := gpioreg.ByName(cfg.PumpGPIOPin)
		if pin == nil {
			s.Close()
			return nil, fmt.Errorf("pump pin %q not found", cfg.PumpGPIOPin)
		}
		s.Pump = pump.New(pin)
		if err := s.Pump.Off(); err != nil {
			s.Close()
			return nil, err
		}
		log.Printf("pump: on %s", pin)
	}
	return s, nil
}

// Next reads moisture, humidity, the temperature converted with it, and
// light.
func (s *Station) Next() (env.Sample, error) {
	smp := env.Sample{Time: time.Now()}
	var err error
	if smp.Moisture, err = s.ADC.Moisture(); err != nil {
		return env.Sample{}, fmt.Errorf("moisture: %w", err)
	}
	if smp.Humidity, smp.Temperature, err = s.SI7021.HumidityTemperature(false); err != nil {
		return env.Sample{}, err
	}
	if smp.Light, err = s.ADC.Light(); err != nil {
		return env.Sample{}, fmt.Errorf("light: %w", err)
	}
	return smp, nil
}

// Close turns the pump off and releases the buses.
func (s *Station) Close() error {
	var errs []error
	if s.Pump != nil {
		errs = append(errs, s.Pump.Off())
	}
	if s.SI7021 != nil {
		if err := s.SI7021.Close(); err != nil && !errors.Is(err, si7021.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if s.i2cBus != nil {
		errs = append(errs, s.i2cBus.Close())
	}
	if s.spiPort != nil {
		errs = append(errs, s.spiPort.Close())
	}
	return errors.Join(errs...)
}
