package protocol

// CRC16 is the CCITT variant Klipper uses over a frame's header and payload.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, d := range data {
		x := d ^ uint8(crc)
		x ^= x << 4
		w := uint16(x)
		crc = (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
	}
	return crc
}
