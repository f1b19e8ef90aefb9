package rtuserver

import "time"

// charTime computes the inter-frame silence threshold: character time in
// microseconds is (1 + data_bits + parity_bit + stop_bits) * 1e6 / baud_rate;
// the 3.5-character delay is char_time * 35 / 10, floored at 1750us.
func charTime(dataBits, parityBit, stopBits, baudRate int) time.Duration {
	bitsPerChar := 1 + dataBits + parityBit + stopBits
	charTimeUs := int64(bitsPerChar) * 1_000_000 / int64(baudRate)
	delayUs := charTimeUs * 35 / 10
	if delayUs < 1750 {
		delayUs = 1750
	}
	return time.Duration(delayUs) * time.Microsecond
}
