package eventlog

import "fmt"

type Item struct {
	Seq     uint64
	Header  []byte
	Payload []byte
}

// ReadAfter returns up to limit entries with a sequence strictly greater than
// after, in ascending order. A limit <= 0 means no limit. Entries failing the
// checksum are skipped.
func (l *Log) ReadAfter(after uint64, limit int) ([]Item, error) {
	iter, err := l.newEntryIter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	items := make([]Item, 0, capHint(limit))
	if after == ^uint64(0) {
		return items, nil
	}
	for ok := iter.SeekGE(KeyLogEntry(l.stream, after+1)); ok; ok = iter.Next() {
		if limit > 0 && len(items) >= limit {
			break
		}
		dec, valid := DecodeRecord(iter.Value())
		if !valid {
			continue
		}
		items = append(items, Item{Seq: seqFromKey(iter.Key()), Header: dec.Header, Payload: dec.Payload})
	}
	if err := iter.Error(); err != nil {
		return items, fmt.Errorf("eventlog: read %s: %w", l.stream, err)
	}
	return items, nil
}

func capHint(limit int) int {
	if limit <= 0 || limit > 256 {
		return 16
	}
	return limit
}
