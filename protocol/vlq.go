package protocol

// AppendVLQ appends v in Klipper's variable length encoding: seven bits
// per byte, most significant group first, with the sign carried in the
// top bits of the first byte.
func AppendVLQ(dst []byte, v int32) []byte {
	if v < -(1<<26) || v >= 3<<26 {
		dst = append(dst, byte(v>>28)&0x7F|0x80)
	}
	if v < -(1<<19) || v >= 3<<19 {
		dst = append(dst, byte(v>>21)&0x7F|0x80)
	}
	if v < -(1<<12) || v >= 3<<12 {
		dst = append(dst, byte(v>>14)&0x7F|0x80)
	}
	if v < -(1<<5) || v >= 3<<5 {
		dst = append(dst, byte(v>>7)&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// AppendVLQUint appends an unsigned value.
func AppendVLQUint(dst []byte, v uint32) []byte {
	return AppendVLQ(dst, int32(v))
}

// ReadVLQ decodes one value from the front of *data and advances it.
func ReadVLQ(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrShortBuffer
	}

	c := uint32(buf[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	n := 1
	for c&0x80 != 0 {
		if n == 5 {
			return 0, ErrInvalidVLQ
		}
		if n == len(buf) {
			return 0, ErrShortBuffer
		}
		c = uint32(buf[n])
		v = v<<7 | c&0x7F
		n++
	}
	*data = buf[n:]
	return int32(v), nil
}

// ReadVLQUint decodes an unsigned value.
func ReadVLQUint(data *[]byte) (uint32, error) {
	v, err := ReadVLQ(data)
	return uint32(v), err
}

// AppendBytes appends a length-prefixed byte string.
func AppendBytes(dst, b []byte) []byte {
	dst = AppendVLQUint(dst, uint32(len(b)))
	return append(dst, b...)
}

// ReadBytes decodes a length-prefixed byte string. The result aliases data.
func ReadBytes(data *[]byte) ([]byte, error) {
	n, err := ReadVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrShortBuffer
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}
