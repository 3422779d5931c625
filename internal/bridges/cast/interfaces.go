package cast

import (
	"context"

	"github.com/nerrad567/cast-bridge/internal/castapi"
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// SnapshotFetcher lists the raw status of every device.
type SnapshotFetcher interface {
	Devices(ctx context.Context) ([]castapi.DeviceStatus, error)
}

// CastAPI is the subset of *castapi.Client used by the bridge.
type CastAPI interface {
	SnapshotFetcher
	Stop(ctx context.Context, deviceID string) error
	PlayMedia(ctx context.Context, deviceID, title, locale string) error
	SetVolume(ctx context.Context, deviceID string, level int) error
	Action(ctx context.Context, deviceID, action string) error
	AssistantCommand(ctx context.Context, message string) error
}

// StateRecorder receives every snapshot the bridge publishes.
// It is optional; main wires it to InfluxDB.
type StateRecorder interface {
	RecordState(snap Snapshot)
}

// CommandRecord describes one routed command.
type CommandRecord struct {
	Route    RouteKind
	DeviceID string
	Value    string
	Err      error
}

// CommandRecorder receives every routed command.
// It is optional; main wires it to the SQLite audit log.
type CommandRecorder interface {
	RecordCommand(ctx context.Context, rec CommandRecord)
}

// Logger is the structured logging interface used by the bridge.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// orNop returns l, or a discarding logger when l is nil.
func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
