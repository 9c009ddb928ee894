// Package eventlog implements the append-only log behind the embedded
// (pebble://) stream store.
//
// # Overview
//
// Each named stream is one Log persisted in Pebble. Keys are ordered so that
// entries of a stream are contiguous and sorted by sequence:
//   - s/{stream}/m           (metadata: lastSeq)
//   - s/{stream}/e/{seq_be8} (entries)
//
// Records are stored as: uvarint headerLen | header | payload | crc32c(header|payload).
// The header holds the append time in ms (8 bytes big-endian), used by age trims.
//
// API surface (internal)
//
//	l, _ := OpenLog(db, "llm_jobs")
//	seqs, _ := l.Append(ctx, [][]byte{payload})
//	items, _ := l.ReadAfter(0, 100)     // entries with seq > 0, ascending
//	_, _ = l.Delete(ctx, seqs[0])       // removal is idempotent
//	woke := l.WaitForAppend(ctx, 200*time.Millisecond)
//	_, _ = l.TrimToMaxBytes(ctx, 64<<20, 1024)
//
// Sequence numbers are never reused: lastSeq survives deletes and restarts, so
// ids handed out by Append are strictly increasing for the life of the store.
package eventlog
