package decoder

import "github.com/xsandr/maxminddb-go/internal/mmdberrors"

// Decoder lets a caller manually walk a single data section value without
// going through dotted-path projection — e.g. to enumerate every key of a
// map rather than fetch one named field. Its Decode* methods return plain
// Go values (string, []byte, bool, float32, float64, int32, uint64 and a
// 128-bit hi/lo pair), not Value; it does not do reflection-based decoding
// into caller-defined struct types.
type Decoder struct {
	d      DataDecoder
	offset uint

	hasNextOffset bool
	nextOffset    uint
}

// NewDecoder returns a Decoder for the value at offset within d.
func NewDecoder(d DataDecoder, offset uint) *Decoder {
	return &Decoder{d: d, offset: offset}
}

func (d *Decoder) reset(offset uint) {
	d.offset = offset
	d.hasNextOffset = false
	d.nextOffset = 0
}

func (d *Decoder) setNextOffset(offset uint) {
	if !d.hasNextOffset {
		d.hasNextOffset = true
		d.nextOffset = offset
	}
}

// next advances past numberToSkip values without decoding them.
func (d *Decoder) next(numberToSkip uint) error {
	if numberToSkip > 1 || !d.hasNextOffset {
		offset, err := d.d.nextValueOffset(d.offset, numberToSkip)
		if err != nil {
			return err
		}
		d.reset(offset)
		return nil
	}
	d.reset(d.nextOffset)
	return nil
}

func (d *Decoder) child(offset uint) *Decoder {
	return &Decoder{d: d.d, offset: offset}
}

func unexpectedKindErr(expected, actual Kind) error {
	return mmdberrors.NewInvalidDatabaseError(
		"unexpected type %s, expected %s", actual, expected,
	)
}

// decodeCtrlDataAndFollow reads the control byte at the Decoder's current
// offset, transparently following any chain of pointers, and fails unless
// the resulting Kind matches expected.
func (d *Decoder) decodeCtrlDataAndFollow(expected Kind) (uint, uint, error) {
	size, _, dataOffset, err := d.decodeCtrlDataAnyOf(expected)
	return size, dataOffset, err
}

// decodeCtrlDataAnyOf is decodeCtrlDataAndFollow for callers that accept
// more than one Kind (DecodeUint64 accepts the narrower Uint16/Uint32
// encodings too, since they're all the same logical integer family).
func (d *Decoder) decodeCtrlDataAnyOf(expected ...Kind) (uint, Kind, uint, error) {
	offset := d.offset
	for {
		kind, size, dataOffset, err := d.d.decodeCtrlData(offset)
		if err != nil {
			return 0, 0, 0, err
		}
		if kind == KindPointer {
			pointer, nextOffset, err := d.d.decodePointer(size, dataOffset)
			if err != nil {
				return 0, 0, 0, err
			}
			d.setNextOffset(nextOffset)
			offset = pointer
			continue
		}
		for _, want := range expected {
			if kind == want {
				return size, kind, dataOffset, nil
			}
		}
		return 0, 0, 0, unexpectedKindErr(expected[0], kind)
	}
}

// DecodeString decodes the value as a string.
func (d *Decoder) DecodeString() (string, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindString)
	if err != nil {
		return "", err
	}
	v, next, err := d.d.decodeString(size, offset)
	if err != nil {
		return "", err
	}
	d.setNextOffset(next)
	return v, nil
}

// DecodeBytes decodes the value as a raw byte slice.
func (d *Decoder) DecodeBytes() ([]byte, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindBytes)
	if err != nil {
		return nil, err
	}
	v, next, err := d.d.decodeBytes(size, offset)
	if err != nil {
		return nil, err
	}
	d.setNextOffset(next)
	return v, nil
}

// DecodeBool decodes the value as a bool.
func (d *Decoder) DecodeBool() (bool, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindBool)
	if err != nil {
		return false, err
	}
	d.setNextOffset(offset)
	return d.d.decodeBool(size), nil
}

// DecodeFloat32 decodes the value as a float32.
func (d *Decoder) DecodeFloat32() (float32, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindFloat32)
	if err != nil {
		return 0, err
	}
	v, next, err := d.d.decodeFloat32(size, offset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return v, nil
}

// DecodeFloat64 decodes the value as a float64.
func (d *Decoder) DecodeFloat64() (float64, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindFloat64)
	if err != nil {
		return 0, err
	}
	v, next, err := d.d.decodeFloat64(size, offset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return v, nil
}

// DecodeInt32 decodes the value as an int32.
func (d *Decoder) DecodeInt32() (int32, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindInt32)
	if err != nil {
		return 0, err
	}
	v, next, err := d.d.decodeInt32(size, offset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return v, nil
}

// DecodeUint64 decodes the value as a uint64 (also used for Uint16/Uint32
// payloads, which are narrower encodings of the same Kind family).
func (d *Decoder) DecodeUint64() (uint64, error) {
	size, _, dataOffset, err := d.decodeCtrlDataAnyOf(KindUint16, KindUint32, KindUint64)
	if err != nil {
		return 0, err
	}
	v, next, err := d.d.decodeUint(size, dataOffset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return v, nil
}

// DecodeUint128 decodes the value as a 128-bit unsigned integer, returned
// as the high and low 64-bit halves.
func (d *Decoder) DecodeUint128() (hi, lo uint64, err error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindUint128)
	if err != nil {
		return 0, 0, err
	}
	v, next, err := d.d.decodeUint128(size, offset)
	if err != nil {
		return 0, 0, err
	}
	d.setNextOffset(next)
	bytes := v.Bytes()
	var lowBuf, highBuf [8]byte
	for i := 0; i < len(bytes); i++ {
		b := bytes[len(bytes)-1-i]
		if i < 8 {
			lowBuf[7-i] = b
		} else {
			highBuf[15-i] = b
		}
	}
	for _, b := range lowBuf {
		lo = (lo << 8) | uint64(b)
	}
	for _, b := range highBuf {
		hi = (hi << 8) | uint64(b)
	}
	return hi, lo, nil
}

// DecodeMap calls cb for every key/value pair of the value, which must be
// a Map. If cb returns false, iteration stops and the remaining pairs are
// skipped without being decoded. Any error from cb stops iteration and is
// returned as-is.
func (d *Decoder) DecodeMap(cb func(key string, value *Decoder) (bool, error)) error {
	size, offset, err := d.decodeCtrlDataAndFollow(KindMap)
	if err != nil {
		return err
	}

	dec := d.child(offset)
	for i := uint(0); i < size; i++ {
		key, next, err := d.d.decodeKey(dec.offset)
		if err != nil {
			return err
		}
		dec.reset(next)

		ok, cbErr := cb(key, dec)
		if advErr := dec.next(1); advErr != nil {
			return advErr
		}
		if cbErr != nil {
			return cbErr
		}
		if !ok {
			return dec.next((size - i - 1) * 2)
		}
	}
	d.setNextOffset(dec.offset)
	return nil
}

// DecodeSlice calls cb for every element of the value, which must be a
// Slice (array). If cb returns false, iteration stops and the remaining
// elements are skipped without being decoded.
func (d *Decoder) DecodeSlice(cb func(value *Decoder) (bool, error)) error {
	size, offset, err := d.decodeCtrlDataAndFollow(KindSlice)
	if err != nil {
		return err
	}

	dec := d.child(offset)
	for i := uint(0); i < size; i++ {
		ok, cbErr := cb(dec)
		if advErr := dec.next(1); advErr != nil {
			return advErr
		}
		if cbErr != nil {
			return cbErr
		}
		if !ok {
			return dec.next(size - i - 1)
		}
	}
	d.setNextOffset(dec.offset)
	return nil
}
