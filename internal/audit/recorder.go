package audit

import (
	"context"
	"sync"
)

// recorderChanSize is the buffer size for the async write channel.
// Entries beyond this are dropped to avoid back-pressure on command routing.
const recorderChanSize = 256

// Logger is the logging interface used by the recorder.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Recorder writes command logs asynchronously through a single goroutine,
// which suits SQLite's serial write model.
//
// Thread Safety: Record may be called concurrently.
type Recorder struct {
	repo   Repository
	logger Logger
	ch     chan *CommandLog

	wg        sync.WaitGroup
	closeOnce sync.Once
	cancel    context.CancelFunc
}

// NewRecorder creates a recorder writing to repo. Call Start to begin draining.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger,
		ch:     make(chan *CommandLog, recorderChanSize),
	}
}

// Start launches the writer goroutine. Cancelling ctx does not stop it;
// the writer runs until Close so commands routed during shutdown are kept.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.wg.Add(1)
	go r.drain(ctx)
}

// Record enqueues an entry. If the queue is full the entry is dropped and
// a warning is logged.
func (r *Recorder) Record(entry *CommandLog) {
	select {
	case r.ch <- entry:
	default:
		if r.logger != nil {
			r.logger.Warn("command log queue full, dropping entry",
				"route", entry.Route,
				"device_id", entry.DeviceID,
			)
		}
	}
}

// Close stops the writer after flushing queued entries.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
	})
}

// drain writes entries until ctx is cancelled, then writes what remains.
func (r *Recorder) drain(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.ch:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.ch:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *CommandLog) {
	// Detached from the drain context so the final flush still succeeds.
	if err := r.repo.Create(context.Background(), entry); err != nil && r.logger != nil {
		r.logger.Error("command log write failed",
			"route", entry.Route,
			"device_id", entry.DeviceID,
			"error", err,
		)
	}
}
