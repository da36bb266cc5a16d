package modem

import "testing"

func TestCRC8Checksum(t *testing.T) {
	cases := []struct {
		input    string
		expected uint8
	}{
		{"", 0x00},
		{"123456789", 0xf4},
		{"SEVMTE8=", 0x13},
		{"QQ==", 0x06},
	}
	for _, c := range cases {
		if got := CRC8.Checksum([]byte(c.input)); got != c.expected {
			t.Errorf("CRC8(%q) = %#02x, expected %#02x", c.input, got, c.expected)
		}
	}
}

func TestCRC8ChecksumBits(t *testing.T) {
	data := []byte("123456789")
	bits := append(BitsFromBytes(data), true, false, true)
	if got := CRC8.ChecksumBits(bits); got != CRC8.Checksum(data) {
		t.Errorf("ChecksumBits = %#02x, expected %#02x", got, CRC8.Checksum(data))
	}
}

func TestCRC8DetectsSingleBitFlips(t *testing.T) {
	data := []byte("hello world")
	expected := CRC8.Checksum(data)
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), data...)
			flipped[i] ^= 1 << bit
			if CRC8.Checksum(flipped) == expected {
				t.Errorf("flip of byte %d bit %d not detected", i, bit)
			}
		}
	}
}
