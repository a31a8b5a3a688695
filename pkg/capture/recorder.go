package capture

import (
	"sync"

	"avaneesh/qcoder-go/pkg/channel"
	"avaneesh/qcoder-go/pkg/internal/logger"
	"avaneesh/qcoder-go/pkg/qcoder"
)

// Recorder is a channel.Observer that writes every frame to a capture
// file, a store, or both
type Recorder struct {
	mu     sync.Mutex
	writer *Writer
	store  *Store
	log    logger.Logger

	written  int
	inserted int
	errors   int
}

// NewRecorder records into w and s; either may be nil
func NewRecorder(w *Writer, s *Store, log logger.Logger) *Recorder {
	return &Recorder{writer: w, store: s, log: logger.OrNoOp(log)}
}

// ObserveFrame implements channel.Observer
func (r *Recorder) ObserveFrame(dir channel.Direction, raw []byte, m *qcoder.Message, res qcoder.Result) {
	rec := NewRecord(m.Stack, m.MsgID, res.Status, raw)
	rec.Direction = uint8(dir)
	r.Record(rec)
}

// Record writes rec to the configured sinks
func (r *Recorder) Record(rec *Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.writer != nil {
		if err := r.writer.Write(rec); err != nil {
			r.errors++
			r.log.Error("capture write failed: %v", err)
		} else {
			r.written++
		}
	}
	if r.store != nil {
		inserted, err := r.store.Put(rec)
		switch {
		case err != nil:
			r.errors++
			r.log.Error("capture store failed: %v", err)
		case inserted:
			r.inserted++
		default:
			r.log.Debug("capture store: duplicate frame %x", rec.Digest[:4])
		}
	}
}

// Stats returns records written to the file, rows inserted into the
// store and failures
func (r *Recorder) Stats() (written, inserted, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written, r.inserted, r.errors
}
