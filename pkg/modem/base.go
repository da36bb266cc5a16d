package modem

// BitCodec maps single bits to fixed-length tone buffers and back.
type BitCodec interface {
	EncodeBit(bit bool) []float64
	// DecodeBit reports ok=false when the chunk carries no decidable bit.
	DecodeBit(chunk []float64) (bit bool, ok bool)
	SamplesPerBit() int
}

// Modulate concatenates the tone of every bit in order.
func Modulate(codec BitCodec, bits Bitstream) []float64 {
	signal := make([]float64, 0, len(bits)*codec.SamplesPerBit())
	for _, bit := range bits {
		signal = append(signal, codec.EncodeBit(bit)...)
	}
	return signal
}

// Demodulate slices the signal into consecutive non-overlapping chunks of
// one bit each and decodes them. The trailing partial chunk is discarded and
// undecidable chunks are skipped, so the result may be shorter than the
// number of chunks.
func Demodulate(codec BitCodec, signal []float64) Bitstream {
	size := codec.SamplesPerBit()
	if size <= 0 {
		return nil
	}
	bits := make(Bitstream, 0, len(signal)/size)
	for i := 0; i+size <= len(signal); i += size {
		if bit, ok := codec.DecodeBit(signal[i : i+size]); ok {
			bits = append(bits, bit)
		}
	}
	return bits
}
