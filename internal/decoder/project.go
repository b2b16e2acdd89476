package decoder

import (
	"strconv"
	"strings"

	"github.com/xsandr/maxminddb-go/internal/mmdberrors"
)

// ProjectFields resolves each of paths against the map (or array) rooted at
// root, inserting a Value into out under the path's original string for
// every path that can be located. The cursor is reset to root before each
// path, so paths are independent of each other and of their order.
//
// A path that cannot be located (missing key, out-of-range index, or a
// leaf whose Kind falls outside the five materializable variants) is
// simply absent from out; it is never an error. ProjectFields reports
// whether at least one of paths was found; distinguishing "IP not in
// database" from "no requested field present" happens one level up, in
// Result.
func (d *DataDecoder) ProjectFields(
	root uint,
	paths []string,
	out map[string]Value,
) (bool, error) {
	foundAny := false
	for _, path := range paths {
		found, err := d.findOne(root, path, path, out)
		if err != nil {
			tracker := mmdberrors.NewPathBuilder()
			tracker.PrependMap(path)
			return false, mmdberrors.WrapWithContext(err, root, tracker)
		}
		if found {
			foundAny = true
		}
	}
	return foundAny, nil
}

// findOne walks remaining (the unconsumed suffix of the original dotted
// path) starting at offset, inserting into out under the original full
// path key if a leaf is reached.
func (d *DataDecoder) findOne(
	offset uint,
	remaining string,
	fullPath string,
	out map[string]Value,
) (bool, error) {
	return d.findOneDepth(offset, remaining, fullPath, out, 0)
}

func (d *DataDecoder) findOneDepth(
	offset uint,
	remaining string,
	fullPath string,
	out map[string]Value,
	depth int,
) (bool, error) {
	if depth > maximumDataStructureDepth {
		return false, mmdberrors.NewInvalidDatabaseError(
			"exceeded maximum data structure depth; database is likely corrupt",
		)
	}

	if remaining == "" {
		val, ok, err := d.decodeLeaf(offset)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		out[fullPath] = val
		return true, nil
	}

	head, tail, _ := strings.Cut(remaining, ".")

	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return false, err
	}
	if kind == KindPointer {
		pointer, _, err := d.decodePointer(size, dataOffset)
		if err != nil {
			return false, err
		}
		kind, size, dataOffset, err = d.decodeCtrlData(pointer)
		if err != nil {
			return false, err
		}
	}

	if idx, isIndex := parseIndex(head); isIndex {
		if kind != KindSlice {
			return false, nil
		}
		if idx < 0 || uint(idx) >= size {
			return false, nil
		}
		elemOffset, err := d.nextValueOffset(dataOffset, uint(idx))
		if err != nil {
			return false, err
		}
		return d.findOneDepth(elemOffset, tail, fullPath, out, depth+1)
	}

	if kind != KindMap {
		return false, nil
	}

	valueOffset := dataOffset
	for i := uint(0); i < size; i++ {
		key, afterKey, err := d.decodeKey(valueOffset)
		if err != nil {
			return false, err
		}
		if key == head {
			return d.findOneDepth(afterKey, tail, fullPath, out, depth+1)
		}
		valueOffset, err = d.nextValueOffset(afterKey, 1)
		if err != nil {
			return false, err
		}
	}
	return false, nil
}

// decodeLeaf materializes the value at offset into a Value if its Kind is
// one of the five the output container can hold. Pointers are followed
// transparently. Any other structural or unmaterializable Kind (Map,
// Slice, Bytes, Int32, Uint128) yields ok=false rather than an error — see
// DESIGN.md's Open Question decision on this.
func (d *DataDecoder) decodeLeaf(offset uint) (Value, bool, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return Value{}, false, err
	}
	if kind == KindPointer {
		pointer, _, err := d.decodePointer(size, dataOffset)
		if err != nil {
			return Value{}, false, err
		}
		return d.decodeLeaf(pointer)
	}

	switch kind {
	case KindString:
		s, _, err := d.decodeString(size, dataOffset)
		if err != nil {
			return Value{}, false, err
		}
		return Value{Kind: KindString, Str: s}, true, nil
	case KindUint16, KindUint32, KindUint64:
		u, _, err := d.decodeUint(size, dataOffset)
		if err != nil {
			return Value{}, false, err
		}
		return Value{Kind: KindUint64, Uint: u}, true, nil
	case KindBool:
		return Value{Kind: KindBool, Boolean: d.decodeBool(size)}, true, nil
	case KindFloat32:
		f, _, err := d.decodeFloat32(size, dataOffset)
		if err != nil {
			return Value{}, false, err
		}
		return Value{Kind: KindFloat32, F32: f}, true, nil
	case KindFloat64:
		f, _, err := d.decodeFloat64(size, dataOffset)
		if err != nil {
			return Value{}, false, err
		}
		return Value{Kind: KindFloat64, F64: f}, true, nil
	default:
		return Value{}, false, nil
	}
}

func parseIndex(head string) (int, bool) {
	if head == "" {
		return 0, false
	}
	for _, c := range head {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return idx, true
}

