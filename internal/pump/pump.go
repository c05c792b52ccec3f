// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pump switches the water pump relay on a GPIO output.
package pump

import (
	"context"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Pump drives one relay pin. High runs the pump.
type Pump struct {
	pin gpio.PinOut
}

// New returns a pump on pin.
func New(pin gpio.PinOut) *Pump {
	return &Pump{pin: pin}
}

func (p *Pump) String() string {
	return fmt.Sprintf("Pump{%s}", p.pin)
}

// Off drives the pin low.
func (p *Pump) Off() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("pump: off: %w", err)
	}
	return nil
}

// Run switches the pump on for d, or until ctx is done. The pin is always
// driven low again before Run returns.
func (p *Pump) Run(ctx context.Context, d time.Duration) error {
	if err := p.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("pump: on: %w", err)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	if err := p.Off(); err != nil {
		return err
	}
	return ctx.Err()
}
