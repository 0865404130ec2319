package pasetov4

import "encoding/binary"

// pae implements Pre-Authentication Encoding from the PASETO spec:
// LE64(count) followed by each piece as LE64(len) || piece. The MSB of
// every length word is cleared so encodings are unambiguous across
// implementations that treat lengths as signed.
func pae(pieces ...[]byte) []byte {
	size := 8
	for _, p := range pieces {
		size += 8 + len(p)
	}

	out := make([]byte, 0, size)
	out = appendLE64(out, uint64(len(pieces)))
	for _, p := range pieces {
		out = appendLE64(out, uint64(len(p)))
		out = append(out, p...)
	}
	return out
}

func appendLE64(b []byte, v uint64) []byte {
	v &= 0x7FFFFFFFFFFFFFFF
	return binary.LittleEndian.AppendUint64(b, v)
}
