// Package mmdbdata re-exports the vocabulary used to describe a decoded
// MaxMind DB value, so callers of the root package don't need to import
// the internal decoder package directly.
package mmdbdata

import "github.com/xsandr/maxminddb-go/internal/decoder"

// Kind identifies the on-disk type of a data section value.
type Kind = decoder.Kind

// Kind constants for MMDB data, mirrored from the internal decoder.
const (
	KindExtended  = decoder.KindExtended
	KindPointer   = decoder.KindPointer
	KindString    = decoder.KindString
	KindFloat64   = decoder.KindFloat64
	KindBytes     = decoder.KindBytes
	KindUint16    = decoder.KindUint16
	KindUint32    = decoder.KindUint32
	KindMap       = decoder.KindMap
	KindInt32     = decoder.KindInt32
	KindUint64    = decoder.KindUint64
	KindUint128   = decoder.KindUint128
	KindSlice     = decoder.KindSlice
	KindContainer = decoder.KindContainer
	KindEndMarker = decoder.KindEndMarker
	KindBool      = decoder.KindBool
	KindFloat32   = decoder.KindFloat32
)

// Value is the tagged union the path projector materializes for a data
// section leaf. Only five Kinds are ever materialized this way (String,
// Uint64, Bool, Float32, Float64; Uint16 and Uint32 leaves are reported as
// Uint64); the remaining Kinds are structural (Map, Slice, Pointer) or
// unmaterializable outside the raw Decoder (Bytes, Int32, Uint128) and
// never appear here. The raw Decoder returns plain Go values, not Value.
type Value = decoder.Value

// Decoder is the low-level cursor for manual structural traversal of a
// data section value (DecodeMap/DecodeSlice callbacks), as an alternative
// to dotted-path projection.
type Decoder = decoder.Decoder

// NewDecoder returns a Decoder for the value at offset within d.
var NewDecoder = decoder.NewDecoder
