package cast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// defaultPollInterval applies when SyncLoopConfig.Interval is zero.
const defaultPollInterval = 5 * time.Second

// SyncLoopConfig holds the collaborators of a SyncLoop.
type SyncLoopConfig struct {
	Fetcher   SnapshotFetcher
	Registry  *Registry
	Announcer *Announcer
	Publisher *EventPublisher

	// Interval is the time between polls. Default: 5 seconds.
	Interval time.Duration

	// Recorder is optional.
	Recorder StateRecorder

	// Logger is optional.
	Logger Logger
}

// SyncLoop polls the cast service and keeps the bus in step with it.
//
// One goroutine runs every cycle, so a cycle never starts while another is
// in flight. Ticks that fall due during a slow cycle are dropped and
// refresh requests made during a cycle coalesce into one.
type SyncLoop struct {
	fetcher   SnapshotFetcher
	registry  *Registry
	announcer *Announcer
	publisher *EventPublisher
	recorder  StateRecorder
	interval  time.Duration
	logger    Logger

	refresh chan struct{}

	polls           atomic.Uint64
	fetchFailures   atomic.Uint64
	lastFetchFailed atomic.Bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSyncLoop creates a loop. Call Start to run it.
func NewSyncLoop(cfg SyncLoopConfig) *SyncLoop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &SyncLoop{
		fetcher:   cfg.Fetcher,
		registry:  cfg.Registry,
		announcer: cfg.Announcer,
		publisher: cfg.Publisher,
		recorder:  cfg.Recorder,
		interval:  interval,
		logger:    orNop(cfg.Logger),
		refresh:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start runs one cycle at once and then one per interval until ctx is
// cancelled or Stop is called.
func (l *SyncLoop) Start(ctx context.Context) {
	l.wg.Add(1)
	go l.run(ctx)
}

// Stop ends the loop and waits for the current cycle to finish.
// Safe to call multiple times.
func (l *SyncLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
	})
}

// RequestRefresh asks for an immediate cycle. It never blocks; a request
// made while one is already pending is dropped.
func (l *SyncLoop) RequestRefresh() {
	select {
	case l.refresh <- struct{}{}:
	default:
	}
}

func (l *SyncLoop) run(ctx context.Context) {
	defer l.wg.Done()

	l.Cycle(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case <-ticker.C:
			l.Cycle(ctx)
		case <-l.refresh:
			l.Cycle(ctx)
		}
	}
}

// Cycle performs one fetch and applies every record it returns.
// A failed fetch is logged and leaves the registry untouched.
//
// The first cycle announces the assistant and every device it finds.
// Announcements that fail are retried on later cycles.
func (l *SyncLoop) Cycle(ctx context.Context) {
	l.polls.Add(1)

	devices, err := l.fetcher.Devices(ctx)

	if !l.announcer.AssistantAnnounced() {
		if announceErr := l.announcer.AnnounceAssistant(); announceErr != nil {
			l.logger.Error("announcing assistant", "error", announceErr)
		}
	}

	if err != nil {
		l.fetchFailures.Add(1)
		l.lastFetchFailed.Store(true)
		l.logger.Warn("fetching device status", "error", err)
		return
	}
	l.lastFetchFailed.Store(false)

	for _, raw := range devices {
		if raw.ID == "" {
			l.logger.Warn("skipping device without id", "name", raw.Name)
			continue
		}
		l.apply(NewSnapshot(raw))
	}
}

// apply runs change detection for one snapshot and publishes it when it
// is new or changed. The registry only takes the snapshot once every report
// went out, so a change missed during a broker outage is sent again on the
// next cycle.
func (l *SyncLoop) apply(snap Snapshot) {
	change := l.registry.Detect(snap)

	if !l.announcer.Announced(snap.ID) {
		if err := l.announcer.AnnounceDevice(snap); err != nil {
			l.logger.Error("announcing device", "device_id", snap.ID, "error", err)
		} else {
			l.logger.Info("device announced", "device_id", snap.ID, "name", snap.Name)
		}
	}

	if change == ChangeUnchanged {
		return
	}

	l.logger.Debug("device state", "device_id", snap.ID, "change", change.String())

	if err := l.publisher.Publish(snap); err != nil {
		l.logger.Warn("publishing device events", "device_id", snap.ID, "error", err)
		return
	}
	l.registry.Put(snap)

	if l.recorder != nil {
		l.recorder.RecordState(snap)
	}
}

// Polls returns the number of cycles run.
func (l *SyncLoop) Polls() uint64 { return l.polls.Load() }

// FetchFailures returns the number of cycles whose fetch failed.
func (l *SyncLoop) FetchFailures() uint64 { return l.fetchFailures.Load() }

// LastFetchFailed reports whether the most recent fetch failed.
func (l *SyncLoop) LastFetchFailed() bool { return l.lastFetchFailed.Load() }
