package conv

// U32Hex writes 8-digit uppercase hex without 0x, zero-padded.
func U32Hex(buf []byte, n uint32) []byte {
	if len(buf) < 8 {
		return buf[:0]
	}
	const hexd = "0123456789ABCDEF"
	i := len(buf)
	for j := 0; j < 8; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}

// Hex writes src as uppercase hex pairs into buf and returns the used slice.
// buf must hold 2*len(src) bytes.
func Hex(buf, src []byte) []byte {
	if len(buf) < 2*len(src) {
		return buf[:0]
	}
	const hexd = "0123456789ABCDEF"
	for i, b := range src {
		buf[2*i] = hexd[b>>4]
		buf[2*i+1] = hexd[b&0xF]
	}
	return buf[:2*len(src)]
}
