package eventlog

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

const defaultTrimBatch = 1024

// TrimOlderThan deletes entries appended before cutoff, oldest first.
// Deletes are committed in batches of up to batchLimit keys.
// Returns the number of deleted entries and the last deleted sequence (0 if none).
func (l *Log) TrimOlderThan(ctx context.Context, cutoff time.Time, batchLimit int) (int, uint64, error) {
	if batchLimit <= 0 {
		batchLimit = defaultTrimBatch
	}
	cutoffMs := cutoff.UnixMilli()

	iter, err := l.newEntryIter()
	if err != nil {
		return 0, 0, err
	}
	defer iter.Close()

	deleted := 0
	var lastSeq uint64
	ok := iter.First()
	for ok {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			dec, valid := DecodeRecord(iter.Value())
			if valid {
				if ms, hasTs := HeaderTimestamp(dec.Header); !hasTs || ms >= cutoffMs {
					ok = false
					break
				}
			}
			// corrupt entries are dropped along with expired ones
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, lastSeq, err
			}
			lastSeq = seqFromKey(iter.Key())
			n++
			ok = iter.Next()
		}
		if err := l.commitTrim(ctx, b, n); err != nil {
			return deleted, lastSeq, err
		}
		deleted += n
	}
	return deleted, lastSeq, nil
}

// TrimToMaxBytes approximates retention by total value bytes.
// If current bytes <= maxBytes, it is a no-op. Otherwise, deletes the oldest
// entries until total bytes <= maxBytes.
func (l *Log) TrimToMaxBytes(ctx context.Context, maxBytes int64, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = defaultTrimBatch
	}
	if maxBytes < 0 {
		return 0, nil
	}

	iter, err := l.newEntryIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var total int64
	for ok := iter.First(); ok; ok = iter.Next() {
		total += int64(len(iter.Value()))
	}
	if total <= maxBytes {
		return 0, nil
	}

	deleted := 0
	ok := iter.First()
	for ok && total > maxBytes {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit && total > maxBytes {
			size := int64(len(iter.Value()))
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			total -= size
			n++
			ok = iter.Next()
		}
		if err := l.commitTrim(ctx, b, n); err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

func (l *Log) commitTrim(ctx context.Context, b *pebble.Batch, n int) error {
	defer b.Close()
	if n == 0 {
		return nil
	}
	return l.db.CommitBatch(ctx, b)
}
