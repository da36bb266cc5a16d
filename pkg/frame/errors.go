package frame

import (
	"errors"
	"fmt"
)

var (
	ErrSyncNotFound      = errors.New("sync word not found")
	ErrMalformedEncoding = errors.New("malformed payload encoding")
	ErrCRCMismatch       = errors.New("crc mismatch")
	ErrNonASCII          = errors.New("text is not ascii")
)

// CRCMismatchError is returned for a structurally valid frame whose trailer
// disagrees with its payload. The payload is kept for callers that want it.
type CRCMismatchError struct {
	Payload string
	Got     uint8 // trailer carried by the frame
	Want    uint8 // checksum recomputed over the payload
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("crc mismatch: frame carries %#02x, payload gives %#02x", e.Got, e.Want)
}

func (e *CRCMismatchError) Is(target error) bool {
	return target == ErrCRCMismatch
}

// Marker renders a parse error as the short string printed by receivers.
func Marker(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCRCMismatch):
		return "[CRC ERROR]"
	case errors.Is(err, ErrSyncNotFound):
		return "Sync word not found."
	default:
		return "[Decode Error]"
	}
}
