// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// BitField describes one field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo describes one register or command of a device.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// SI7021RegisterMap returns metadata for the SI7021 registers and commands.
// The device has no address space; each entry is keyed by its command byte.
func SI7021RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		// Registers
		{Address: "0xE7", Name: "USER_REG1", Description: "User Register 1 (write with 0xE6)", Access: "RW", Default: "0x3A",
			BitFields: []BitField{
				{Bits: "7,0", Name: "RES", Description: "Measurement resolution (RH/Temp)", Values: "00=12/14 bit, 01=8/12 bit, 10=10/13 bit, 11=11/11 bit"},
				{Bits: "6", Name: "VDDS", Description: "VDD status", Values: "0=OK, 1=Low (read only)"},
				{Bits: "5:3", Name: "RESERVED", Description: "Reserved", Values: "Preserve on write"},
				{Bits: "2", Name: "HTRE", Description: "On-chip heater", Values: "0=Disabled, 1=Enabled"},
				{Bits: "1", Name: "RESERVED", Description: "Reserved", Values: "Preserve on write"},
			}},
		{Address: "0x11", Name: "HEATER_REG", Description: "Heater Control Register (write with 0x51)", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7:4", Name: "RESERVED", Description: "Reserved", Values: "Preserve on write"},
				{Bits: "3:0", Name: "HEATER", Description: "Heater current", Values: "0=3.09mA, 1=9.18mA, 2=15.24mA, 4=27.39mA, 8=51.69mA, 15=94.20mA"},
			}},

		// Measurement commands
		{Address: "0xE5", Name: "MEASURE_RH_HOLD", Description: "Measure relative humidity, hold master", Access: "R"},
		{Address: "0xF5", Name: "MEASURE_RH_NOHOLD", Description: "Measure relative humidity, no hold master", Access: "R"},
		{Address: "0xE3", Name: "MEASURE_T_HOLD", Description: "Measure temperature, hold master", Access: "R"},
		{Address: "0xF3", Name: "MEASURE_T_NOHOLD", Description: "Measure temperature, no hold master", Access: "R"},
		{Address: "0xE0", Name: "READ_T_LAST_RH", Description: "Read temperature from previous RH measurement", Access: "R"},
		{Address: "0xFE", Name: "RESET", Description: "Soft reset", Access: "W"},

		// Identification
		{Address: "0xFA0F", Name: "ELECTRONIC_ID_1", Description: "Electronic ID first bytes (SNA3..SNA0, each with CRC)", Access: "R"},
		{Address: "0xFCC9", Name: "ELECTRONIC_ID_2", Description: "Electronic ID last bytes (SNB3..SNB0)", Access: "R",
			BitFields: []BitField{
				{Bits: "SNB3", Name: "DEVICE_ID", Description: "Device identification", Values: "0x0D=Si7013, 0x14=Si7020, 0x15=Si7021, 0x00/0xFF=engineering sample"},
			}},
		{Address: "0x84B8", Name: "FIRMWARE_REV", Description: "Firmware revision", Access: "R",
			BitFields: []BitField{
				{Bits: "7:0", Name: "FWREV", Description: "Firmware version", Values: "0xFF=1.0, 0x20=2.0"},
			}},
	}
}
