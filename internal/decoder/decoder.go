// Package decoder implements the MaxMind DB data section's self-describing
// type system: control byte parsing, the scalar decoders, and pointer
// resolution. It is the primitive layer the path projector (project.go)
// and the metadata reader (metadata.go) are built on.
package decoder

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/xsandr/maxminddb-go/internal/mmdberrors"
)

// Kind identifies the on-disk type of a decoded data section value.
type Kind int

// Data section type tags, per the MaxMind DB format. Extended types
// (KindInt32 onward) are encoded as the byte following a control byte
// whose type bits are KindExtended, plus 7.
const (
	KindExtended Kind = iota
	KindPointer
	KindString
	KindFloat64
	KindBytes
	KindUint16
	KindUint32
	KindMap
	KindInt32
	KindUint64
	KindUint128
	KindSlice
	KindContainer
	KindEndMarker
	KindBool
	KindFloat32
)

func (k Kind) String() string {
	switch k {
	case KindExtended:
		return "Extended"
	case KindPointer:
		return "Pointer"
	case KindString:
		return "String"
	case KindFloat64:
		return "Float64"
	case KindBytes:
		return "Bytes"
	case KindUint16:
		return "Uint16"
	case KindUint32:
		return "Uint32"
	case KindMap:
		return "Map"
	case KindInt32:
		return "Int32"
	case KindUint64:
		return "Uint64"
	case KindUint128:
		return "Uint128"
	case KindSlice:
		return "Slice"
	case KindContainer:
		return "Container"
	case KindEndMarker:
		return "EndMarker"
	case KindBool:
		return "Bool"
	case KindFloat32:
		return "Float32"
	default:
		return "Unknown"
	}
}

// maximumDataStructureDepth bounds recursive map/slice decode, matching the
// limit used by libmaxminddb, so a corrupt cyclic-looking database fails
// fast instead of recursing unboundedly.
const maximumDataStructureDepth = 512

// DataDecoder is a stateless reader of the MMDB data section. All state
// (the cursor) is threaded explicitly through return values so a single
// DataDecoder can be reused across concurrent lookups without locking.
type DataDecoder struct {
	buffer []byte
}

// NewDataDecoder creates a DataDecoder over buffer. buffer must be the
// data section slice only (search tree and metadata excluded).
func NewDataDecoder(buffer []byte) DataDecoder {
	return DataDecoder{buffer: buffer}
}

// decodeCtrlData reads the control byte (and, for extended types, the
// following type-tag byte) at offset, returning the value's kind, its
// size field (post extended-size decode), and the offset of the payload.
func (d *DataDecoder) decodeCtrlData(offset uint) (Kind, uint, uint, error) {
	if offset >= uint(len(d.buffer)) {
		return 0, 0, 0, mmdberrors.NewOffsetError()
	}
	ctrlByte := d.buffer[offset]
	newOffset := offset + 1

	kind := Kind(ctrlByte >> 5)
	if kind == KindExtended {
		if newOffset >= uint(len(d.buffer)) {
			return 0, 0, 0, mmdberrors.NewOffsetError()
		}
		extended := Kind(d.buffer[newOffset]) + 7
		if extended < KindInt32 || extended > KindFloat32 {
			return 0, 0, 0, mmdberrors.NewInvalidDatabaseError(
				"unknown extended type tag: %d", d.buffer[newOffset],
			)
		}
		kind = extended
		newOffset++
	}

	size, newOffset, err := d.sizeFromCtrlByte(ctrlByte, newOffset, kind)
	return kind, size, newOffset, err
}

func (d *DataDecoder) sizeFromCtrlByte(ctrlByte byte, offset uint, kind Kind) (uint, uint, error) {
	size := uint(ctrlByte & 0x1f)
	if kind == KindExtended {
		return size, offset, nil
	}
	if size < 29 {
		return size, offset, nil
	}

	bytesToRead := size - 28
	newOffset := offset + bytesToRead
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}

	switch size {
	case 29:
		return 29 + uint(d.buffer[offset]), offset + 1, nil
	case 30:
		return 285 + uintFromBytes(d.buffer[offset:newOffset]), newOffset, nil
	default:
		return 65821 + uintFromBytes(d.buffer[offset:newOffset]), newOffset, nil
	}
}

// decodePointer decodes a pointer's payload (size carries the pointer-size
// bits and the top 3 payload bits) and returns the absolute data-section
// target offset and the offset just past the pointer's own bytes.
func (d *DataDecoder) decodePointer(size, offset uint) (uint, uint, error) {
	pointerSize := ((size >> 3) & 0x3) + 1
	newOffset := offset + pointerSize
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}

	var prefix uint
	if pointerSize != 4 {
		prefix = size & 0x7
	}
	unpacked := prefix
	for _, b := range d.buffer[offset:newOffset] {
		unpacked = (unpacked << 8) | uint(b)
	}

	var bias uint
	switch pointerSize {
	case 2:
		bias = 2048
	case 3:
		bias = 526336
	}

	return unpacked + bias, newOffset, nil
}

func (d *DataDecoder) decodeBool(size uint) bool {
	return size != 0
}

func (d *DataDecoder) decodeString(size, offset uint) (string, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) {
		return "", 0, mmdberrors.NewOffsetError()
	}
	return string(d.buffer[offset:newOffset]), newOffset, nil
}

func (d *DataDecoder) decodeBytes(size, offset uint) ([]byte, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) {
		return nil, 0, mmdberrors.NewOffsetError()
	}
	out := make([]byte, size)
	copy(out, d.buffer[offset:newOffset])
	return out, newOffset, nil
}

func (d *DataDecoder) decodeUint(size, offset uint) (uint64, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	var val uint64
	for _, b := range d.buffer[offset:newOffset] {
		val = (val << 8) | uint64(b)
	}
	return val, newOffset, nil
}

func (d *DataDecoder) decodeInt32(size, offset uint) (int32, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	var val int32
	for _, b := range d.buffer[offset:newOffset] {
		val = (val << 8) | int32(b)
	}
	return val, newOffset, nil
}

func (d *DataDecoder) decodeUint128(size, offset uint) (*big.Int, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) {
		return nil, 0, mmdberrors.NewOffsetError()
	}
	val := new(big.Int).SetBytes(d.buffer[offset:newOffset])
	return val, newOffset, nil
}

func (d *DataDecoder) decodeFloat32(size, offset uint) (float32, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) || size != 4 {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	bits := binary.BigEndian.Uint32(d.buffer[offset:newOffset])
	return math.Float32frombits(bits), newOffset, nil
}

func (d *DataDecoder) decodeFloat64(size, offset uint) (float64, uint, error) {
	newOffset := offset + size
	if newOffset > uint(len(d.buffer)) || size != 8 {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	bits := binary.BigEndian.Uint64(d.buffer[offset:newOffset])
	return math.Float64frombits(bits), newOffset, nil
}

// decodeKey decodes a map key, which must be a String or a Pointer to one,
// per the format (keys are never any other type).
func (d *DataDecoder) decodeKey(offset uint) (string, uint, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return "", 0, err
	}
	if kind == KindPointer {
		pointer, ptrOffset, err := d.decodePointer(size, dataOffset)
		if err != nil {
			return "", 0, err
		}
		key, _, err := d.decodeKey(pointer)
		return key, ptrOffset, err
	}
	if kind != KindString {
		return "", 0, mmdberrors.NewInvalidDatabaseError(
			"unexpected type when decoding map key: %v", kind,
		)
	}
	s, newOffset, err := d.decodeString(size, dataOffset)
	return s, newOffset, err
}

// nextValueOffset returns the offset immediately after numberToSkip
// consecutive values starting at offset, without materializing them.
// A Map counts as 2*size child values (key, value per entry); a Slice as
// size child values; everything else is exactly one value wide.
func (d *DataDecoder) nextValueOffset(offset, numberToSkip uint) (uint, error) {
	for numberToSkip > 0 {
		kind, size, dataOffset, err := d.decodeCtrlData(offset)
		if err != nil {
			return 0, err
		}

		switch kind {
		case KindPointer:
			_, dataOffset, err = d.decodePointer(size, dataOffset)
			if err != nil {
				return 0, err
			}
		case KindMap:
			numberToSkip += 2 * size
		case KindSlice:
			numberToSkip += size
		case KindBool:
			// No payload bytes.
		default:
			dataOffset += size
		}

		offset = dataOffset
		numberToSkip--
	}
	return offset, nil
}

func uintFromBytes(b []byte) uint {
	var val uint
	for _, c := range b {
		val = (val << 8) | uint(c)
	}
	return val
}
