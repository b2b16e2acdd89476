package decoder

// Value is the tagged union materialized for a data section leaf reached
// by path projection. Only five Kinds are ever materialized into a Value
// (String, Uint64, Bool, Float32, Float64; Uint16 and Uint32 leaves are
// reported as Uint64); the
// rest are structural (Map, Slice, Pointer) or skipped without
// materialization (Bytes, Int32, Uint128).
type Value struct {
	Kind    Kind
	Str     string
	Uint    uint64
	Boolean bool
	F32     float32
	F64     float64
}
