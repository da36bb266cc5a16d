package modem

import (
	"fmt"
	"strings"
)

// Bitstream is an ordered sequence of bits in transmission order.
type Bitstream []bool

func ParseBitstream(s string) (Bitstream, error) {
	bits := make(Bitstream, 0, len(s))
	for i, c := range s {
		switch c {
		case '0':
			bits = append(bits, false)
		case '1':
			bits = append(bits, true)
		default:
			return nil, fmt.Errorf("invalid bit %q at position %d", c, i)
		}
	}
	return bits, nil
}

// MustParseBitstream is ParseBitstream for constants.
func MustParseBitstream(s string) Bitstream {
	bits, err := ParseBitstream(s)
	if err != nil {
		panic(err)
	}
	return bits
}

// BitsFromBytes renders every byte as 8 bits, most significant bit first.
func BitsFromBytes(data []byte) Bitstream {
	bits := make(Bitstream, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (b>>i)&1 == 1)
		}
	}
	return bits
}

// Bytes groups the bits into bytes, MSB first. Bits that do not fill a
// whole byte at the end are dropped.
func (b Bitstream) Bytes() []byte {
	out := make([]byte, len(b)/8)
	for i := range out {
		var v byte
		for j := 0; j < 8; j++ {
			if b[i*8+j] {
				v |= 1 << (7 - j)
			}
		}
		out[i] = v
	}
	return out
}

// Index returns the position of the first occurrence of sub in b, or -1.
func (b Bitstream) Index(sub Bitstream) int {
	if len(sub) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(sub) <= len(b); i++ {
		for j := range sub {
			if b[i+j] != sub[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

func (b Bitstream) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, bit := range b {
		if bit {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
