package maxminddb

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xsandr/maxminddb-go/internal/decoder"
)

func testStr(s string) []byte {
	return append([]byte{byte(decoder.KindString)<<5 | byte(len(s))}, s...)
}

func testSmallUint(v byte) []byte {
	return []byte{byte(decoder.KindUint32)<<5 | 1, v}
}

// buildTinyDB assembles a minimal, valid IPv4-only MMDB buffer with a
// single search tree node: IPs whose first bit is 0 resolve to the data
// record {"name": "test"}; IPs whose first bit is 1 are not found.
func buildTinyDB(t *testing.T) []byte {
	t.Helper()

	// record_size 24: 6 bytes per node (3-byte left, 3-byte right record).
	// left record (bit 0) = data pointer; right record (bit 1) = node_count
	// (the not-found sentinel).
	const nodeCount = 1
	tree := []byte{0x00, 0x00, 0x11, 0x00, 0x00, 0x01}
	require.Len(t, tree, 6)

	sep := make([]byte, dataSectionSeparatorSize)

	var data []byte
	data = append(data, byte(decoder.KindMap)<<5|1)
	data = append(data, testStr("name")...)
	data = append(data, testStr("test")...)

	var metadata []byte
	metadata = append(metadata, byte(decoder.KindMap)<<5|3)
	metadata = append(metadata, testStr("node_count")...)
	metadata = append(metadata, testSmallUint(nodeCount)...)
	metadata = append(metadata, testStr("record_size")...)
	metadata = append(metadata, testSmallUint(24)...)
	metadata = append(metadata, testStr("ip_version")...)
	metadata = append(metadata, testSmallUint(4)...)

	buf := append([]byte{}, tree...)
	buf = append(buf, sep...)
	buf = append(buf, data...)
	buf = append(buf, decoder.MetadataStartMarker...)
	buf = append(buf, metadata...)
	return buf
}

func TestFromBytesAndLookupFound(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	ip := netip.MustParseAddr("0.0.0.1")
	result := r.Lookup(ip)
	require.NoError(t, result.Err())
	assert.True(t, result.Found())

	out := make(map[string]Value)
	found, err := result.Fields([]string{"name"}, out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "test", out["name"].Str)
}

func TestFromBytesAndLookupNotFound(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	ip := netip.MustParseAddr("128.0.0.1")
	result := r.Lookup(ip)
	require.NoError(t, result.Err())
	assert.False(t, result.Found())

	out := make(map[string]Value)
	found, err := result.Fields([]string{"name"}, out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLookupRejectsIPv6OnIPv4OnlyDatabase(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	result := r.Lookup(netip.MustParseAddr("::1"))
	assert.Error(t, result.Err())
}

func TestFromBytesRejectsMissingSentinel(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/path/to/a.mmdb")
	assert.Error(t, err)
}

func TestLookupOffsetSkipsTreeDescent(t *testing.T) {
	r, err := FromBytes(buildTinyDB(t))
	require.NoError(t, err)

	found := r.Lookup(netip.MustParseAddr("0.0.0.1"))
	require.True(t, found.Found())

	direct := r.LookupOffset(found.RecordOffset())
	out := make(map[string]Value)
	ok, err := direct.Fields([]string{"name"}, out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "test", out["name"].Str)
}

func TestReadNode24Bit(t *testing.T) {
	r := &Reader{
		buffer:   []byte{0x00, 0x00, 0x11, 0x00, 0x00, 0x01},
		Metadata: Metadata{RecordSize: 24, NodeCount: 1},
	}
	assert.Equal(t, uint(0x11), r.readNode(0, 0))
	assert.Equal(t, uint(0x01), r.readNode(0, 1))
}

func TestReadNode32Bit(t *testing.T) {
	r := &Reader{
		buffer:   []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00},
		Metadata: Metadata{RecordSize: 32, NodeCount: 1},
	}
	assert.Equal(t, uint(0x0100), r.readNode(0, 0))
	assert.Equal(t, uint(0x0200), r.readNode(0, 1))
}

// TestReadNode28Bit exercises the nibble-split middle byte: 7 bytes encode
// two 28-bit records, with the middle byte's high nibble belonging to the
// left record and low nibble to the right record.
func TestReadNode28Bit(t *testing.T) {
	// left = 0xABCDE12, right = 0x3456789, packed as:
	// L0 L1 L2 M R0 R1 R2 where M = (left>>24 & 0xF)<<4 | (right>>24 & 0xF)
	left := uint(0xABCDE12)
	right := uint(0x3456789)

	l0 := byte(left >> 16)
	l1 := byte(left >> 8)
	l2 := byte(left)
	mid := byte(((left>>24)&0x0F)<<4 | (right>>24)&0x0F)
	r0 := byte(right >> 16)
	r1 := byte(right >> 8)
	r2 := byte(right)

	r := &Reader{
		buffer:   []byte{l0, l1, l2, mid, r0, r1, r2},
		Metadata: Metadata{RecordSize: 28, NodeCount: 1},
	}
	assert.Equal(t, left, r.readNode(0, 0))
	assert.Equal(t, right, r.readNode(0, 1))
}
