package packets

// Pack encodes v as base-128 groups, least significant first, with the high
// bit of each byte marking that another group follows.
func Pack(v uint32) []byte {
	return AppendPacked(make([]byte, 0, 5), v)
}

// AppendPacked appends the packed form of v to b.
func AppendPacked(b []byte, v uint32) []byte {
	for {
		group := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, group)
		}
		b = append(b, group|0x80)
	}
}

// Unpack decodes a packed integer from the start of b.
func Unpack(b []byte) (uint32, error) {
	return NewReader(b).ReadPacked()
}
