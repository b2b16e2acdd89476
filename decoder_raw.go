package maxminddb

import "github.com/xsandr/maxminddb-go/mmdbdata"

// Decoder is a low-level cursor over a single data section value, for
// manual structural traversal (DecodeMap/DecodeSlice callbacks) instead of
// Result.Fields' dotted-path projection. Obtain one via Result.Decoder.
type Decoder = mmdbdata.Decoder
