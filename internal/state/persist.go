package state

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// snapshotWriter is the slice of the storage layer the persister needs.
// Satisfied by *storage.SnapshotRepo.
type snapshotWriter interface {
	Put(ctx context.Context, key string, blob []byte) error
}

// persister serializes snapshot writes on a single goroutine. At most one
// write is in flight; a snapshot queued while one is pending replaces it, so
// after a burst of mutations only the latest state hits the database. A
// failed write is logged and dropped — memory stays authoritative and the
// next mutation queues a fresh snapshot anyway.
type persister struct {
	writer snapshotWriter
	key    string
	log    *zap.Logger

	pending chan []byte
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func newPersister(w snapshotWriter, key string, log *zap.Logger) *persister {
	p := &persister{
		writer:  w,
		key:     key,
		log:     log,
		pending: make(chan []byte, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// queue marshals the snapshot and hands it to the writer goroutine,
// replacing any snapshot still waiting.
func (p *persister) queue(s *AppState) {
	blob, err := json.Marshal(s)
	if err != nil {
		p.log.Error("marshal snapshot", zap.Error(err))
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.pending <- blob:
	default:
		// Channel full: drop the stale snapshot and queue this one.
		select {
		case <-p.pending:
		default:
		}
		p.pending <- blob
	}
}

func (p *persister) run() {
	defer close(p.done)
	for blob := range p.pending {
		if err := p.writer.Put(context.Background(), p.key, blob); err != nil {
			p.log.Warn("persist snapshot", zap.Error(err))
		}
	}
}

// close flushes the pending snapshot, if any, and waits for the writer to
// drain. Safe to call more than once.
func (p *persister) close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.pending)
	}
	p.mu.Unlock()
	<-p.done
}
