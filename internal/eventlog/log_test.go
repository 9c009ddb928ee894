package eventlog

import (
	"context"
	"testing"

	pebblestore "github.com/rzbill/inferq/internal/storage/pebble"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "llm_jobs")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func TestOpenLogRequiresStream(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	defer db.Close()
	if _, err := OpenLog(db, ""); err != ErrEmptyStream {
		t.Fatalf("want ErrEmptyStream, got %v", err)
	}
}

func TestAppendAssignsSequential(t *testing.T) {
	l := newTestLog(t)
	seqs, err := l.Append(context.Background(), [][]byte{[]byte("p1"), []byte("p2")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(seqs) != 2 {
		t.Fatalf("want 2 seqs, got %d", len(seqs))
	}
	if seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("expected seqs 1,2: %v", seqs)
	}
	if l.LastSeq() != 2 {
		t.Fatalf("LastSeq=%d", l.LastSeq())
	}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	l := newTestLog(t)
	seqs, err := l.Append(context.Background(), nil)
	if err != nil || seqs != nil {
		t.Fatalf("seqs=%v err=%v", seqs, err)
	}
	if l.LastSeq() != 0 {
		t.Fatalf("LastSeq moved on empty append")
	}
}

func TestAppendCancelledContextKeepsSeq(t *testing.T) {
	l := newTestLog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Append(ctx, [][]byte{[]byte("x")}); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
	if l.LastSeq() != 0 {
		t.Fatalf("failed append must not consume a seq")
	}
}

func TestAppendDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir)
	l, err := OpenLog(db, "llm_jobs")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	ctx := context.Background()
	seqs, err := l.Append(ctx, [][]byte{[]byte("x")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := l.Delete(ctx, seqs[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// lastSeq survives even though the only entry was deleted
	db2 := openTestDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := OpenLog(db2, "llm_jobs")
	if err != nil {
		t.Fatalf("open log2: %v", err)
	}
	seqs2, err := l2.Append(ctx, [][]byte{[]byte("y")})
	if err != nil {
		t.Fatalf("append2: %v", err)
	}
	if !(seqs[0] < seqs2[0]) {
		t.Fatalf("expected next seq > previous: prev=%d next=%d", seqs[0], seqs2[0])
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	seqs, err := l.Append(ctx, [][]byte{[]byte("a"), []byte("b")})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	ok, err := l.Delete(ctx, seqs[0])
	if err != nil || !ok {
		t.Fatalf("first delete ok=%v err=%v", ok, err)
	}
	ok, err = l.Delete(ctx, seqs[0])
	if err != nil || ok {
		t.Fatalf("second delete ok=%v err=%v", ok, err)
	}
	n, err := l.Count()
	if err != nil || n != 1 {
		t.Fatalf("count=%d err=%v", n, err)
	}
}

func TestStreamsAreIsolated(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	defer db.Close()
	jobs, _ := OpenLog(db, "llm_jobs")
	results, _ := OpenLog(db, "llm_results")
	ctx := context.Background()
	if _, err := jobs.Append(ctx, [][]byte{[]byte("j")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	items, err := results.ReadAfter(0, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("results stream should be empty, got %d", len(items))
	}
}
