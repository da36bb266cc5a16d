package frame

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"Aethertalk/pkg/modem"
)

// SyncWord marks the start of the payload. It is not escaped inside the
// payload, so the first occurrence in a bitstream always wins.
var SyncWord = modem.MustParseBitstream("1010101010101010")

// Encoding is a reversible byte to printable text mapping.
type Encoding interface {
	EncodeToString(src []byte) string
	DecodeString(s string) ([]byte, error)
}

// Codec builds and parses frames:
//
//	SyncWord | bits(encode(text | crc8(encode(text))))
//
// The zero value uses standard base64 and CRC-8/0x07.
type Codec struct {
	Encoding Encoding
	Checker  *modem.CRC8Checker
}

func (c Codec) encoding() Encoding {
	if c.Encoding == nil {
		return base64.StdEncoding
	}
	return c.Encoding
}

func (c Codec) checker() modem.CRC8Checker {
	if c.Checker == nil {
		return modem.CRC8
	}
	return *c.Checker
}

// Checksum is the integrity byte of text.
func (c Codec) Checksum(text string) uint8 {
	return c.checker().Checksum([]byte(c.encoding().EncodeToString([]byte(text))))
}

func (c Codec) Build(text string) (modem.Bitstream, error) {
	if !isASCII([]byte(text)) {
		return nil, ErrNonASCII
	}
	payload := append([]byte(text), c.Checksum(text))
	encoded := c.encoding().EncodeToString(payload)

	bits := make(modem.Bitstream, 0, len(SyncWord)+len(encoded)*8)
	bits = append(bits, SyncWord...)
	bits = append(bits, modem.BitsFromBytes([]byte(encoded))...)
	return bits, nil
}

func (c Codec) Parse(bits modem.Bitstream) (string, error) {
	start := bits.Index(SyncWord)
	if start < 0 {
		return "", ErrSyncNotFound
	}

	encoded := bits[start+len(SyncWord):].Bytes()
	// the decoder skips line breaks, the wire format has none
	if bytes.ContainsAny(encoded, "\r\n") {
		return "", fmt.Errorf("%w: line break in payload", ErrMalformedEncoding)
	}
	decoded, err := c.encoding().DecodeString(string(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrMalformedEncoding)
	}

	payload, trailer := decoded[:len(decoded)-1], decoded[len(decoded)-1]
	if !isASCII(payload) {
		return "", fmt.Errorf("%w: payload is not ascii", ErrMalformedEncoding)
	}

	text := string(payload)
	if want := c.Checksum(text); want != trailer {
		return "", &CRCMismatchError{Payload: text, Got: trailer, Want: want}
	}
	return text, nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
