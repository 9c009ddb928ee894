package eventlog

import (
	"context"
	"time"
)

// AppendSignal returns a channel that is closed by the next append. Take it
// before checking for new entries so an append in between is not missed.
func (l *Log) AppendSignal() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifyCh
}

// WaitForAppend blocks until a new append occurs, timeout elapses or ctx is
// done. It returns true only if woken by an append. A timeout <= 0 waits on
// ctx alone.
func (l *Log) WaitForAppend(ctx context.Context, timeout time.Duration) bool {
	return WaitSignal(ctx, l.AppendSignal(), timeout)
}

// WaitSignal is WaitForAppend on a channel taken earlier with AppendSignal.
func WaitSignal(ctx context.Context, ch <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-ch:
			return true
		case <-ctx.Done():
			return false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
