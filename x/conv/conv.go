package conv

const hexd = "0123456789ABCDEF"

// TagHex writes the 10-digit uppercase hex form of a 5-byte tag id.
// buf must be at least 10 bytes; the used slice is returned.
func TagHex(buf []byte, tag [5]byte) []byte {
	if len(buf) < 10 {
		return buf[:0]
	}
	for i, b := range tag {
		buf[2*i] = hexd[b>>4]
		buf[2*i+1] = hexd[b&0xF]
	}
	return buf[:10]
}

// Pad2 writes n as exactly two decimal digits (00..99).
// Values outside that range are truncated modulo 100.
func Pad2(buf []byte, n uint8) []byte {
	if len(buf) < 2 {
		return buf[:0]
	}
	n %= 100
	buf[0] = byte('0' + n/10)
	buf[1] = byte('0' + n%10)
	return buf[:2]
}

// Itoa writes base-10 representation of n into buf and returns the used slice.
// buf should be length >= 20 for int64. No allocations; no strconv dependency.
func Itoa(buf []byte, n int64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	neg := n < 0
	var u uint64
	if neg {
		u = uint64(-n)
	} else {
		u = uint64(n)
	}
	if u == 0 {
		i--
		buf[i] = '0'
	} else {
		for u > 0 && i > 0 {
			i--
			buf[i] = byte('0' + (u % 10))
			u /= 10
		}
	}
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}
