package eventlog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - s/{stream}/m
// - s/{stream}/e/{seq_be8}

var (
	streamPrefix = []byte("s/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// KeyLogMeta builds the stream metadata key.
func KeyLogMeta(stream string) []byte {
	k := make([]byte, 0, len(streamPrefix)+len(stream)+len(metaSuffix))
	k = append(k, streamPrefix...)
	k = append(k, stream...)
	k = append(k, metaSuffix...)
	return k
}

// KeyLogEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyLogEntry(stream string, seq uint64) []byte {
	k := make([]byte, 0, len(streamPrefix)+len(stream)+len(entrySeg)+8)
	k = append(k, streamPrefix...)
	k = append(k, stream...)
	k = append(k, entrySeg...)
	k = appendBE8(k, seq)
	return k
}

// entryBounds returns [lower, upper) covering every entry of stream.
func entryBounds(stream string) (lower, upper []byte) {
	lower = KeyLogEntry(stream, 0)
	upper = append(KeyLogEntry(stream, ^uint64(0)), 0x00)
	return lower, upper
}

// seqFromKey extracts the trailing sequence of an entry key.
func seqFromKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}
