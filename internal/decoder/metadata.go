package decoder

import (
	"bytes"
	"time"

	"github.com/xsandr/maxminddb-go/internal/mmdberrors"
)

// MetadataStartMarker is the 14-byte sentinel that terminates the data
// section and introduces the metadata map.
var MetadataStartMarker = []byte("\xAB\xCD\xEFMaxMind.com")

// Metadata holds the fields of the trailing metadata map this module reads.
// node_count, record_size, and ip_version are required; the rest are read
// when present and ignored by the core trie walker.
type Metadata struct {
	Description              map[string]string
	DatabaseType             string
	Languages                []string
	BinaryFormatMajorVersion uint
	BinaryFormatMinorVersion uint
	BuildEpoch               uint
	IPVersion                uint
	NodeCount                uint
	RecordSize               uint
}

// BuildTime converts BuildEpoch (Unix epoch seconds) to a time.Time.
func (m Metadata) BuildTime() time.Time {
	return time.Unix(int64(m.BuildEpoch), 0)
}

// Validate re-checks the required fields already enforced by ParseMetadata.
// It exists as a standalone call for callers who obtained a Metadata value
// some other way (e.g. round-tripped through their own storage) and want to
// confirm it is still usable without re-parsing the whole file. It does not
// walk the search tree or data section; there is no full-database verify.
func (m Metadata) Validate() error {
	if m.NodeCount == 0 {
		return mmdberrors.NewInvalidDatabaseError(
			"metadata is missing required key: node_count",
		)
	}
	if m.RecordSize != 24 && m.RecordSize != 28 && m.RecordSize != 32 {
		return mmdberrors.NewInvalidDatabaseError(
			"unsupported record_size in metadata: %d", m.RecordSize,
		)
	}
	if m.IPVersion != 4 && m.IPVersion != 6 {
		return mmdberrors.NewInvalidDatabaseError(
			"unsupported ip_version in metadata: %d", m.IPVersion,
		)
	}
	return nil
}

// FindMetadataStart scans buffer from the tail for MetadataStartMarker and
// returns the offset of the byte immediately following it (the start of
// the metadata map itself). Returns false if the sentinel is not present.
func FindMetadataStart(buffer []byte) (int, bool) {
	i := bytes.LastIndex(buffer, MetadataStartMarker)
	if i == -1 {
		return 0, false
	}
	return i + len(MetadataStartMarker), true
}

// ParseMetadata decodes the known-key metadata map at the start of
// metadataBuffer (a buffer slice beginning right after the sentinel).
func ParseMetadata(metadataBuffer []byte) (Metadata, error) {
	d := NewDataDecoder(metadataBuffer)

	kind, size, offset, err := d.decodeCtrlData(0)
	if err != nil {
		return Metadata{}, err
	}
	if kind != KindMap {
		return Metadata{}, mmdberrors.NewInvalidDatabaseError(
			"metadata section does not contain a map",
		)
	}

	var md Metadata
	for i := uint(0); i < size; i++ {
		key, afterKey, err := d.decodeKey(offset)
		if err != nil {
			return Metadata{}, err
		}

		switch key {
		case "node_count":
			v, next, err := d.decodeUintValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.NodeCount = uint(v)
			offset = next
		case "record_size":
			v, next, err := d.decodeUintValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.RecordSize = uint(v)
			offset = next
		case "ip_version":
			v, next, err := d.decodeUintValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.IPVersion = uint(v)
			offset = next
		case "binary_format_major_version":
			v, next, err := d.decodeUintValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.BinaryFormatMajorVersion = uint(v)
			offset = next
		case "binary_format_minor_version":
			v, next, err := d.decodeUintValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.BinaryFormatMinorVersion = uint(v)
			offset = next
		case "build_epoch":
			v, next, err := d.decodeUintValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.BuildEpoch = uint(v)
			offset = next
		case "database_type":
			v, next, err := d.decodeStringValue(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.DatabaseType = v
			offset = next
		case "languages":
			v, next, err := d.decodeStringSlice(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.Languages = v
			offset = next
		case "description":
			v, next, err := d.decodeStringMap(afterKey)
			if err != nil {
				return Metadata{}, err
			}
			md.Description = v
			offset = next
		default:
			next, err := d.nextValueOffset(afterKey, 1)
			if err != nil {
				return Metadata{}, err
			}
			offset = next
		}
	}

	if err := md.Validate(); err != nil {
		return Metadata{}, err
	}

	return md, nil
}

func (d *DataDecoder) decodeUintValue(offset uint) (uint64, uint, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return 0, 0, err
	}
	switch kind {
	case KindUint16, KindUint32, KindUint64:
		return d.decodeUint(size, dataOffset)
	default:
		return 0, 0, mmdberrors.NewInvalidDatabaseError(
			"expected an unsigned integer in metadata but found %v", kind,
		)
	}
}

func (d *DataDecoder) decodeStringValue(offset uint) (string, uint, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return "", 0, err
	}
	if kind != KindString {
		return "", 0, mmdberrors.NewInvalidDatabaseError(
			"expected a string in metadata but found %v", kind,
		)
	}
	return d.decodeString(size, dataOffset)
}

func (d *DataDecoder) decodeStringSlice(offset uint) ([]string, uint, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return nil, 0, err
	}
	if kind != KindSlice {
		return nil, 0, mmdberrors.NewInvalidDatabaseError(
			"expected an array in metadata but found %v", kind,
		)
	}
	out := make([]string, 0, size)
	next := dataOffset
	for i := uint(0); i < size; i++ {
		s, after, err := d.decodeStringValue(next)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
		next = after
	}
	return out, next, nil
}

func (d *DataDecoder) decodeStringMap(offset uint) (map[string]string, uint, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return nil, 0, err
	}
	if kind != KindMap {
		return nil, 0, mmdberrors.NewInvalidDatabaseError(
			"expected a map in metadata but found %v", kind,
		)
	}
	out := make(map[string]string, size)
	next := dataOffset
	for i := uint(0); i < size; i++ {
		key, afterKey, err := d.decodeKey(next)
		if err != nil {
			return nil, 0, err
		}
		val, afterVal, err := d.decodeStringValue(afterKey)
		if err != nil {
			return nil, 0, err
		}
		out[key] = val
		next = afterVal
	}
	return out, next, nil
}
