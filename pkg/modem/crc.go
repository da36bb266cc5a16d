package modem

// CRC8Checker computes a non-reflected CRC-8 with a zero initial value.
type CRC8Checker struct {
	Poly uint8
}

// CRC8 is the checker used for frame trailers (x^8 + x^2 + x + 1).
var CRC8 = CRC8Checker{Poly: 0x07}

func (c CRC8Checker) Checksum(data []byte) uint8 {
	var crc uint8
	for _, b := range data {
		crc ^= b
		for k := 0; k < 8; k++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ c.Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// ChecksumBits is Checksum over a bitstream, grouped MSB first.
// A trailing partial byte is ignored.
func (c CRC8Checker) ChecksumBits(bits Bitstream) uint8 {
	return c.Checksum(bits.Bytes())
}
