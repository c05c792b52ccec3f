// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package si7021

// crcPoly is x^8 + x^5 + x^4 + 1.
const crcPoly = 0x131

// Checksum computes the device CRC-8 (initial value 0, no final XOR) MSB
// first over data. Run over a frame including its trailing CRC byte, it
// returns 0 when the frame is intact.
func Checksum(data []byte) byte {
	var rem uint16
	for _, b := range data {
		rem ^= uint16(b)
		for i := 0; i < 8; i++ {
			if rem&0x80 != 0 {
				rem = rem<<1 ^ crcPoly
			} else {
				rem <<= 1
			}
		}
	}
	return byte(rem)
}
