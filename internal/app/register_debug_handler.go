// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relabs-tech/field_computer/internal/sensors"
	"github.com/relabs-tech/field_computer/internal/si7021"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// RegisterDevice is the part of the SI7021 driver the console drives.
type RegisterDevice interface {
	UserRegister() (byte, error)
	WriteUserRegister(v byte) error
	HeaterLevel() (uint8, error)
	HeaterEnabled() (bool, error)
	Heater(enable bool, level uint8) error
	MaxHeaterLevel() uint8
	Resolution() (si7021.Resolution, error)
	SetResolution(r si7021.Resolution) error
	SerialNumber() (si7021.Serial, error)
	FirmwareRevision() (si7021.Firmware, error)
	HumidityTemperature(hold bool) (rh, temp float64, err error)
	Reset() error
}

// RegisterDebugSession holds WebSocket connection state for register debugging
type RegisterDebugSession struct {
	Conn *websocket.Conn
	Dev  RegisterDevice
}

// RegisterResponse is every message sent to the browser.
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "measurement", "status", "error"
	Device      string                 `json:"device,omitempty"`
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Temperature *float64               `json:"temperature,omitempty"`
	Humidity    *float64               `json:"humidity,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
}

// NewRegisterDebugHandler returns the WebSocket handler bound to dev.
func NewRegisterDebugHandler(dev RegisterDevice) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("register_debug: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		session := &RegisterDebugSession{Conn: conn, Dev: dev}

		// Send register map on connection
		if err := conn.WriteJSON(registerMapResponse()); err != nil {
			log.Printf("register_debug: error sending register map: %v", err)
			return
		}

		// Message loop
		for {
			var rawMsg map[string]interface{}
			if err := conn.ReadJSON(&rawMsg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("register_debug: websocket error: %v", err)
				}
				break
			}
			if err := conn.WriteJSON(session.dispatch(rawMsg)); err != nil {
				log.Printf("register_debug: write error: %v", err)
				break
			}
		}
	}
}

// dispatch runs one console action and builds its reply.
func (s *RegisterDebugSession) dispatch(rawMsg map[string]interface{}) RegisterResponse {
	action, ok := rawMsg["action"].(string)
	if !ok {
		return errorResponse("missing or invalid action field")
	}

	switch action {
	case "get_map":
		return registerMapResponse()
	case "read_user":
		return s.handleReadUser()
	case "write_user":
		return s.handleWriteUser(rawMsg)
	case "read_heater":
		return s.handleReadHeater()
	case "heater":
		return s.handleHeater(rawMsg)
	case "resolution":
		return s.handleResolution()
	case "set_resolution":
		return s.handleSetResolution(rawMsg)
	case "serial":
		return s.handleSerial()
	case "firmware":
		return s.handleFirmware()
	case "read":
		return s.handleMeasure()
	case "reset":
		if err := s.Dev.Reset(); err != nil {
			return errorResponse(fmt.Sprintf("reset error: %v", err))
		}
		return RegisterResponse{Type: "status", Device: "si7021", Status: "reset", Message: "device reset"}
	default:
		return errorResponse(fmt.Sprintf("unknown action: %s", action))
	}
}

func (s *RegisterDebugSession) handleReadUser() RegisterResponse {
	v, err := s.Dev.UserRegister()
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}
	return registerData("0xE7", fmt.Sprintf("0x%02X", v), "")
}

func (s *RegisterDebugSession) handleWriteUser(rawMsg map[string]interface{}) RegisterResponse {
	valueStr, _ := rawMsg["value"].(string)
	if valueStr == "" {
		return errorResponse("missing value field")
	}
	var valueByte byte
	if _, err := fmt.Sscanf(valueStr, "0x%X", &valueByte); err != nil {
		return errorResponse(fmt.Sprintf("invalid value format: %s", valueStr))
	}
	if err := s.Dev.WriteUserRegister(valueByte); err != nil {
		return errorResponse(fmt.Sprintf("write error: %v", err))
	}
	return registerData("0xE7", fmt.Sprintf("0x%02X", valueByte), "write successful")
}

func (s *RegisterDebugSession) handleReadHeater() RegisterResponse {
	level, err := s.Dev.HeaterLevel()
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}
	enabled, err := s.Dev.HeaterEnabled()
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}
	state := "off"
	if enabled {
		state = "on"
	}
	return registerData("0x11", fmt.Sprintf("0x%02X", level),
		fmt.Sprintf("heater %s, cap %d", state, s.Dev.MaxHeaterLevel()))
}

func (s *RegisterDebugSession) handleHeater(rawMsg map[string]interface{}) RegisterResponse {
	enable, _ := rawMsg["enable"].(bool)
	level, ok := rawMsg["level"].(float64)
	if !ok || level < 0 || level > 255 {
		return errorResponse("missing or invalid level field")
	}
	if err := s.Dev.Heater(enable, uint8(level)); err != nil {
		return errorResponse(fmt.Sprintf("heater error: %v", err))
	}
	return RegisterResponse{
		Type:    "status",
		Device:  "si7021",
		Status:  "heater",
		Message: fmt.Sprintf("heater enable=%t level=%d", enable, uint8(level)),
	}
}

func (s *RegisterDebugSession) handleResolution() RegisterResponse {
	r, err := s.Dev.Resolution()
	if err != nil {
		return errorResponse(fmt.Sprintf("read error: %v", err))
	}
	return registerData("0xE7", r.String(), fmt.Sprintf("resolution %d", uint8(r)))
}

func (s *RegisterDebugSession) handleSetResolution(rawMsg map[string]interface{}) RegisterResponse {
	v, ok := rawMsg["value"].(float64)
	if !ok || v < 0 || v > 255 {
		return errorResponse("missing or invalid value field")
	}
	r := si7021.Resolution(v)
	if err := s.Dev.SetResolution(r); err != nil {
		return errorResponse(fmt.Sprintf("set resolution error: %v", err))
	}
	return registerData("0xE7", r.String(), "resolution updated")
}

func (s *RegisterDebugSession) handleSerial() RegisterResponse {
	sn, err := s.Dev.SerialNumber()
	if err != nil {
		return errorResponse(fmt.Sprintf("serial error: %v", err))
	}
	return registerData("0xFA0F", sn.String(), sn.Model())
}

func (s *RegisterDebugSession) handleFirmware() RegisterResponse {
	fw, err := s.Dev.FirmwareRevision()
	if err != nil {
		return errorResponse(fmt.Sprintf("firmware error: %v", err))
	}
	return registerData("0x84B8", fw.String(), "")
}

func (s *RegisterDebugSession) handleMeasure() RegisterResponse {
	rh, t, err := s.Dev.HumidityTemperature(false)
	if err != nil {
		return errorResponse(fmt.Sprintf("measure error: %v", err))
	}
	return RegisterResponse{
		Type:        "measurement",
		Device:      "si7021",
		Temperature: &t,
		Humidity:    &rh,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func registerMapResponse() RegisterResponse {
	return RegisterResponse{
		Type:        "register_map",
		Device:      "si7021",
		RegisterMap: sensors.SI7021RegisterMap(),
	}
}

func registerData(addr, value, message string) RegisterResponse {
	return RegisterResponse{
		Type:      "register_data",
		Device:    "si7021",
		Address:   addr,
		Value:     value,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func errorResponse(message string) RegisterResponse {
	return RegisterResponse{
		Type:    "error",
		Message: message,
	}
}
