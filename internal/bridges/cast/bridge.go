package cast

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/cast-bridge/internal/infrastructure/config"
)

// Bridge wires the cast service to the MQTT bus. It handles:
//   - Polling device status and publishing FIMP events on change
//   - Announcing devices and the assistant with inclusion reports
//   - Routing inbound FIMP commands to cast service calls
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg    *config.Config
	mqtt   MQTTClient
	topics TopicScheme
	qos    byte

	registry  *Registry
	publisher *EventPublisher
	announcer *Announcer
	router    *Router
	loop      *SyncLoop
	health    *HealthReporter

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx
	stopWatch func() bool

	logger Logger
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the loaded application configuration.
	Config *config.Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// API is the cast service client.
	API CastAPI

	// Version is reported in health messages.
	Version string

	// Logger is optional structured logger.
	Logger Logger

	// StateRecorder is optional. It receives every published snapshot.
	StateRecorder StateRecorder

	// CommandRecorder is optional. It receives every routed command.
	CommandRecorder CommandRecorder
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("cast API client is required")
	}

	cfg := opts.Config
	logger := orNop(opts.Logger)
	topics := NewTopicScheme(cfg.MQTT.Topics)
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated to 0..2 by config

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:       cfg,
		mqtt:      opts.MQTTClient,
		topics:    topics,
		qos:       qos,
		registry:  NewRegistry(),
		publisher: NewEventPublisher(opts.MQTTClient, topics, qos),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    logger,
	}

	b.announcer = NewAnnouncer(opts.MQTTClient, topics, qos, b.handleMQTTMessage)

	b.loop = NewSyncLoop(SyncLoopConfig{
		Fetcher:   opts.API,
		Registry:  b.registry,
		Announcer: b.announcer,
		Publisher: b.publisher,
		Interval:  cfg.GetPollInterval(),
		Recorder:  opts.StateRecorder,
		Logger:    logger,
	})

	b.router = NewRouter(RouterOptions{
		API:      opts.API,
		Topics:   topics,
		Registry: b.registry,
		Locale:   cfg.Cast.TTSLocale,
		Refresh:  b.loop.RequestRefresh,
		Recorder: opts.CommandRecorder,
		Logger:   logger,
	})

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  cfg.Bridge.ID,
		Version:   opts.Version,
		Topic:     cfg.MQTT.Topics.Health,
		Interval:  cfg.GetHealthInterval(),
		Publisher: opts.MQTTClient,
		Source:    b,
		Logger:    logger,
	})

	return b, nil
}

// Start subscribes the refresh topic and starts polling and health
// reporting. Cancelling ctx has the same effect as Stop, minus the final
// health message.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Error("failed to publish starting status", "error", err)
	}

	refreshTopic := b.topics.Refresh()
	if err := b.mqtt.Subscribe(refreshTopic, b.qos, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to refresh topic: %w", err)
	}
	b.logger.Info("subscribed to refresh", "topic", refreshTopic)

	b.stopWatch = context.AfterFunc(ctx, b.ctxCancel)

	b.loop.Start(b.ctx)
	b.health.Start(b.ctx)

	b.logger.Info("bridge started",
		"bridge_id", b.cfg.Bridge.ID,
		"poll_interval", b.cfg.GetPollInterval().String())

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.stopWatch != nil {
			b.stopWatch()
		}

		// Cancel bridge context to abort in-flight requests
		b.ctxCancel()

		b.loop.Stop()

		// Publishes "stopping" status
		b.health.Stop()

		b.logger.Info("bridge stopped")
	})
}

// handleMQTTMessage receives every subscribed command message.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	b.router.HandleMessage(b.ctx, topic, payload)
}

// HandleCommand routes one inbound message synchronously and returns the
// routing error, if any.
func (b *Bridge) HandleCommand(ctx context.Context, topic string, payload []byte) error {
	return b.router.Handle(ctx, topic, payload)
}

// RequestRefresh asks the sync loop for an immediate cycle.
func (b *Bridge) RequestRefresh() {
	b.loop.RequestRefresh()
}

// Devices returns the last published snapshot of every device, sorted by id.
func (b *Bridge) Devices() []Snapshot {
	return b.registry.List()
}

// Device returns the last published snapshot of one device.
func (b *Bridge) Device(id string) (Snapshot, bool) {
	return b.registry.Get(id)
}

// DeviceCount returns the number of known devices.
func (b *Bridge) DeviceCount() int {
	return b.registry.Len()
}

// LastFetchFailed reports whether the latest poll could not reach the cast service.
func (b *Bridge) LastFetchFailed() bool {
	return b.loop.LastFetchFailed()
}

// Metrics returns the operational counters of the bridge.
func (b *Bridge) Metrics() BridgeStatistics {
	ok, failed := b.router.Stats()
	return BridgeStatistics{
		Polls:          b.loop.Polls(),
		FetchFailures:  b.loop.FetchFailures(),
		EventsSent:     b.publisher.Sent(),
		CommandsOK:     ok,
		CommandsFailed: failed,
	}
}

// Status returns the current health status and, when degraded, the reason.
func (b *Bridge) Status() (HealthStatus, string) {
	return b.health.Status()
}

// Uptime returns how long the bridge has existed, in whole seconds.
func (b *Bridge) Uptime() int64 {
	return int64(b.health.Uptime().Seconds())
}
