package maxminddb

import (
	"net/netip"

	"github.com/xsandr/maxminddb-go/internal/decoder"
	"github.com/xsandr/maxminddb-go/mmdbdata"
)

// Value is the tagged union a field path resolves to: exactly one of
// String, Uint64, Bool, Float32, or Float64.
type Value = mmdbdata.Value

var zeroIP = netip.MustParseAddr("::")

// Result is the outcome of a single Reader.Lookup or Reader.LookupOffset
// call. It carries no decoded data itself — Fields/DecodePath perform the
// actual data-section walk lazily, so requesting fewer paths does less
// work.
type Result struct {
	ip          netip.Addr
	err         error
	dataDecoder decoder.DataDecoder
	offset      uint
	prefixLen   uint8
}

// Err returns any error from the Lookup call itself (a closed Reader, an
// IPv6 address in an IPv4-only database, or an invalid search tree). It does not
// reflect errors from a later Fields/DecodePath call.
func (r Result) Err() error {
	return r.err
}

// Found reports whether the looked-up IP has a record in the database.
// False does not mean "some requested path was missing," only that the IP
// had no search tree record at all.
func (r Result) Found() bool {
	return r.err == nil && r.offset != notFound
}

// RecordOffset returns the data-section offset of the matched record, for
// passing to Reader.LookupOffset. It is zero if the lookup did not find a
// record.
func (r Result) RecordOffset() uintptr {
	if !r.Found() {
		return 0
	}
	return uintptr(r.offset)
}

// Network returns the netip.Prefix of the network the matched record
// covers, derived from the prefix length consumed during this lookup's
// own trie descent (no extra tree traversal).
func (r Result) Network() netip.Prefix {
	ip := r.ip
	prefixLen := int(r.prefixLen)

	if ip.Is4() {
		if prefixLen < 96 {
			return netip.PrefixFrom(zeroIP, prefixLen)
		}
		prefixLen -= 96
	}

	prefix, _ := ip.Prefix(prefixLen)
	return prefix
}

// Fields resolves each of paths (dotted strings, e.g. "city.names.en" or
// "subdivisions.0.names.en") against the matched record and inserts a
// Value into out for every path that could be located. The caller owns
// out and may reuse it across calls to amortize allocation; this package
// keeps no lookup cache of its own.
//
// Fields returns (true, nil) if at least one path was found, (false, nil)
// if none were (including when the lookup itself was NotFound — out is
// left unchanged in that case), and a non-nil error only when the Lookup
// itself failed (the same error as Err) or the data section is corrupt
// while resolving a path. out may already contain entries written before
// a data section error.
func (r Result) Fields(paths []string, out map[string]Value) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.offset == notFound {
		return false, nil
	}
	return r.dataDecoder.ProjectFields(r.offset, paths, out)
}

// DecodePath resolves a single dotted path and returns its Value. ok is
// false if the lookup was NotFound or the path could not be located;
// distinguish the two cases with Found.
func (r Result) DecodePath(path string) (Value, bool, error) {
	out := make(map[string]Value, 1)
	found, err := r.Fields([]string{path}, out)
	if err != nil || !found {
		return Value{}, false, err
	}
	return out[path], true, nil
}

// Decoder returns a low-level Decoder rooted at this Result's matched
// record, for manual structural traversal (DecodeMap/DecodeSlice
// callbacks) instead of dotted-path projection. Returns nil if the lookup
// was NotFound.
func (r Result) Decoder() *Decoder {
	if r.err != nil || r.offset == notFound {
		return nil
	}
	return decoder.NewDecoder(r.dataDecoder, r.offset)
}
