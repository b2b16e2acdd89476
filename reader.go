// Package maxminddb reads MaxMind DB (.mmdb) files: given an IP address and
// a list of dotted field paths, it returns the values stored for that
// address in the database's data section.
//
// # Basic usage
//
//	db, err := maxminddb.Open("GeoLite2-City.mmdb")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	ip, err := netip.ParseAddr("81.2.69.142")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	out := make(map[string]mmdbdata.Value)
//	found, err := db.Lookup(ip).Fields([]string{
//		"country.iso_code",
//		"city.names.en",
//	}, out)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if found {
//		fmt.Println(out["city.names.en"].Str)
//	}
//
// # Thread safety
//
// All Reader methods are thread-safe: the buffer is immutable after
// construction, and the decoder carries no per-call state of its own. A
// single Reader may be shared across goroutines; each caller should supply
// its own output map.
package maxminddb

import (
	"errors"
	"io"
	"math"
	"net/netip"
	"os"
	"runtime"

	"github.com/xsandr/maxminddb-go/internal/decoder"
	"github.com/xsandr/maxminddb-go/internal/mmdberrors"
)

const dataSectionSeparatorSize = 16

// notFound is the sentinel Result.offset for an IP with no search tree
// record. It is never a valid data-section offset since offsets are bounded
// by the buffer length.
const notFound uint = math.MaxUint

// Metadata holds the fields read from the MaxMind DB file's trailing
// metadata map.
type Metadata = decoder.Metadata

// Reader holds the memory-mapped (or in-memory) contents of a MaxMind DB
// file plus its parsed Metadata. It has no other exported state: all
// lookup state lives on the Result values it produces.
type Reader struct {
	buffer            []byte
	dataDecoder       decoder.DataDecoder
	Metadata          Metadata
	ipv4Start         uint
	ipv4StartBitDepth int
	nodeOffsetMult    uint
	hasMappedFile     bool
}

type readerOptions struct{}

// ReaderOption configures Open or FromBytes. There are no options yet;
// the type exists so one can be added later without a breaking API change.
type ReaderOption func(*readerOptions)

// Open reads filename and parses its metadata. The file is memory-mapped;
// if mmap reports errors.ErrUnsupported, the file is read fully into
// memory instead, and any other mmap error is returned. Call Close to
// release the underlying resources.
func Open(filename string, options ...ReaderOption) (*Reader, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only fd, nothing to react to

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 == 0 {
		return nil, errors.New("file is empty")
	}
	size := int(size64)
	if int64(size) != size64 {
		return nil, errors.New("file too large")
	}

	data, err := mmap(int(f.Fd()), size)
	if err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			data, err = readFully(f, size)
			if err != nil {
				return nil, err
			}
			return FromBytes(data, options...)
		}
		return nil, err
	}

	reader, err := FromBytes(data, options...)
	if err != nil {
		_ = munmap(data)
		return nil, err
	}
	reader.hasMappedFile = true
	runtime.SetFinalizer(reader, (*Reader).Close)
	return reader, nil
}

func readFully(f *os.File, size int) ([]byte, error) {
	data := make([]byte, size)
	_, err := io.ReadFull(f, data)
	return data, err
}

// Close releases the resources backing the Reader. The Reader must not be
// used afterward.
func (r *Reader) Close() error {
	var err error
	if r.hasMappedFile {
		runtime.SetFinalizer(r, nil)
		r.hasMappedFile = false
		err = munmap(r.buffer)
	}
	r.buffer = nil
	return err
}

// FromBytes parses an already-materialized MaxMind DB buffer. The buffer
// must not be mutated after this call; Reader never copies it.
func FromBytes(buffer []byte, options ...ReaderOption) (*Reader, error) {
	opts := &readerOptions{}
	for _, option := range options {
		option(opts)
	}

	metadataStart, ok := decoder.FindMetadataStart(buffer)
	if !ok {
		return nil, mmdberrors.NewInvalidDatabaseError(
			"error opening database: invalid MaxMind DB file",
		)
	}

	metadata, err := decoder.ParseMetadata(buffer[metadataStart:])
	if err != nil {
		return nil, err
	}

	searchTreeSize := metadata.NodeCount * (metadata.RecordSize / 4)
	dataSectionStart := searchTreeSize + dataSectionSeparatorSize
	dataSectionEnd := uint(metadataStart - len(decoder.MetadataStartMarker))
	if dataSectionStart > dataSectionEnd {
		return nil, mmdberrors.NewInvalidDatabaseError(
			"the MaxMind DB contains invalid metadata",
		)
	}

	r := &Reader{
		buffer:         buffer,
		dataDecoder:    decoder.NewDataDecoder(buffer[dataSectionStart:dataSectionEnd]),
		Metadata:       metadata,
		nodeOffsetMult: metadata.RecordSize / 4,
	}
	r.setIPv4Start()
	return r, nil
}

// setIPv4Start locates the root of the IPv4 subtree. netip.Addr.As16
// represents an IPv4 address in v4-in-v6 form with the actual address
// bytes at indices 12-15 (bit 96 onward), so even a pure IPv4 database
// starts its bit walk at depth 96, just over its own root node (no
// embedded-v4-within-v6 descent needed since there is only one tree).
func (r *Reader) setIPv4Start() {
	if r.Metadata.IPVersion != 6 {
		r.ipv4StartBitDepth = 96
		return
	}

	node := uint(0)
	i := 0
	for ; i < 96 && node < r.Metadata.NodeCount; i++ {
		node = r.readNode(node, 0)
	}
	r.ipv4Start = node
	r.ipv4StartBitDepth = i
}

// readNode reads the child record (bit 0 or 1) of the node at nodeIndex,
// dispatching on record_size for the three supported node byte layouts.
// The 28-bit case packs two 28-bit records into 7 bytes with the middle
// byte's nibbles split between them.
func (r *Reader) readNode(nodeIndex, bit uint) uint {
	switch r.Metadata.RecordSize {
	case 24:
		offset := nodeIndex*6 + bit*3
		b := r.buffer
		return uint(b[offset])<<16 | uint(b[offset+1])<<8 | uint(b[offset+2])
	case 28:
		base := nodeIndex * 7
		b := r.buffer
		mid := uint(b[base+3])
		if bit == 0 {
			return (mid&0xF0)<<20 | uint(b[base])<<16 | uint(b[base+1])<<8 | uint(b[base+2])
		}
		return (mid&0x0F)<<24 | uint(b[base+4])<<16 | uint(b[base+5])<<8 | uint(b[base+6])
	case 32:
		offset := nodeIndex*8 + bit*4
		b := r.buffer
		return uint(b[offset])<<24 | uint(b[offset+1])<<16 | uint(b[offset+2])<<8 | uint(b[offset+3])
	default:
		return r.Metadata.NodeCount
	}
}

// Lookup descends the search tree for ip and returns a Result that can
// project requested field paths out of the matching data section record.
func (r *Reader) Lookup(ip netip.Addr) Result {
	if r.buffer == nil {
		return Result{err: errors.New("cannot call Lookup on a closed database")}
	}
	if r.Metadata.IPVersion == 4 && ip.Is6() {
		return Result{err: errors.New(
			"error looking up IP address: you attempted to look up an" +
				" IPv6 address in an IPv4-only database",
		)}
	}

	record, prefixLen := r.traverseTree(ip)

	switch {
	case record == r.Metadata.NodeCount:
		return Result{ip: ip, prefixLen: prefixLen, offset: notFound}
	case record > r.Metadata.NodeCount:
		offset, err := r.resolveDataPointer(record)
		return Result{
			dataDecoder: r.dataDecoder,
			ip:          ip,
			offset:      offset,
			prefixLen:   prefixLen,
			err:         err,
		}
	default:
		return Result{err: mmdberrors.NewInvalidDatabaseError("invalid node in search tree")}
	}
}

// LookupOffset returns a Result rooted at a previously recorded data
// section offset (e.g., Result.RecordOffset from an earlier lookup against
// the same Reader/file version), skipping the trie descent entirely.
func (r *Reader) LookupOffset(offset uintptr) Result {
	if r.buffer == nil {
		return Result{err: errors.New("cannot call LookupOffset on a closed database")}
	}
	return Result{dataDecoder: r.dataDecoder, offset: uint(offset)}
}

// traverseTree walks the full bit width of ip's key (32 for v4, 128 for
// v6 — no 32-bit folding shortcut) and returns the terminal record value
// and the number of bits consumed to reach it.
func (r *Reader) traverseTree(ip netip.Addr) (uint, uint8) {
	var node uint
	var i int
	stopBit := 128

	if ip.Is4() {
		node = r.ipv4Start
		i = r.ipv4StartBitDepth
		stopBit = 32 + r.ipv4StartBitDepth
	}

	key := ip.As16()
	nodeCount := r.Metadata.NodeCount
	for ; i < stopBit && node < nodeCount; i++ {
		byteIdx := i >> 3
		bitPos := 7 - (i & 7)
		bit := (uint(key[byteIdx]) >> bitPos) & 1
		node = r.readNode(node, bit)
	}

	return node, uint8(i)
}

// resolveDataPointer converts a search tree record value into a
// data-section-relative offset: a record greater than node_count is an
// absolute data section pointer, biased by node_count plus the 16-byte
// separator, so subtracting both lands in the data section's own
// numbering.
func (r *Reader) resolveDataPointer(record uint) (uint, error) {
	offset := record - r.Metadata.NodeCount - dataSectionSeparatorSize
	if offset >= uint(len(r.buffer)) {
		return 0, mmdberrors.NewInvalidDatabaseError(
			"the MaxMind DB file's search tree is corrupt",
		)
	}
	return offset, nil
}
