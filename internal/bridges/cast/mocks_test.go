package cast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/cast-bridge/internal/castapi"
	"github.com/nerrad567/cast-bridge/internal/infrastructure/config"
)

// Test topic roots.
const (
	testRefresh   = "pt:j1/mt:cmd/rt:ad/rn:google/ad:1"
	testInclusion = "pt:j1/mt:evt/rt:ad/rn:google/ad:1"
	testSirenRoot = "/rt:dev/rn:google/ad:1/sv:siren_ctrl"
	testMediaRoot = "/rt:dev/rn:google/ad:1/sv:media_player"
	testHealth    = "castbridge/health"
)

func testTopics() TopicScheme {
	return NewTopicScheme(config.MQTTTopicsConfig{
		Refresh:   testRefresh,
		Inclusion: testInclusion,
		SirenRoot: testSirenRoot,
		MediaRoot: testMediaRoot,
		Health:    testHealth,
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Bridge: config.BridgeConfig{ID: "cast-bridge-test", HealthInterval: 60},
		Cast: config.CastConfig{
			URL:          "http://cast.local:3000/",
			Timeout:      1,
			PollInterval: 60,
			TTSLocale:    "no-NO",
		},
		MQTT: config.MQTTConfig{
			QoS: 1,
			Topics: config.MQTTTopicsConfig{
				Refresh:   testRefresh,
				Inclusion: testInclusion,
				SirenRoot: testSirenRoot,
				MediaRoot: testMediaRoot,
				Health:    testHealth,
			},
		},
	}
}

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	ops           []string // "sub <topic>" or "pub <topic>", in call order
	connected     bool
	handlers      map[string]func(topic string, payload []byte)

	publishErr   error
	subscribeErr error
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	m.ops = append(m.ops, "pub "+topic)
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	m.ops = append(m.ops, "sub "+topic)
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockMQTTClient) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

func (m *MockMQTTClient) SetSubscribeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribeErr = err
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// PublishedTo returns the messages published on topic.
func (m *MockMQTTClient) PublishedTo(topic string) []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockPublish
	for _, p := range m.published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockSubscription(nil), m.subscriptions...)
}

func (m *MockMQTTClient) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
	m.ops = nil
}

// SimulateMessage simulates receiving an MQTT message on a topic.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) bool {
	m.mu.Lock()
	handler, ok := m.handlers[topic]
	m.mu.Unlock()
	if ok {
		handler(topic, payload)
	}
	return ok
}

// apiCall is one recorded vendor API call.
type apiCall struct {
	Op       string
	DeviceID string
	Arg      string
	Locale   string
}

// MockCastAPI implements CastAPI for testing.
type MockCastAPI struct {
	mu       sync.Mutex
	devices  []castapi.DeviceStatus
	fetchErr error
	cmdErr   error
	fetches  int
	calls    []apiCall
}

func NewMockCastAPI(devices ...castapi.DeviceStatus) *MockCastAPI {
	return &MockCastAPI{devices: devices}
}

func (m *MockCastAPI) SetDevices(devices ...castapi.DeviceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = devices
}

func (m *MockCastAPI) SetFetchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

func (m *MockCastAPI) SetCommandError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmdErr = err
}

func (m *MockCastAPI) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

func (m *MockCastAPI) Calls() []apiCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]apiCall(nil), m.calls...)
}

func (m *MockCastAPI) Devices(ctx context.Context) ([]castapi.DeviceStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]castapi.DeviceStatus(nil), m.devices...), nil
}

func (m *MockCastAPI) record(c apiCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	return m.cmdErr
}

func (m *MockCastAPI) Stop(ctx context.Context, deviceID string) error {
	return m.record(apiCall{Op: "stop", DeviceID: deviceID})
}

func (m *MockCastAPI) PlayMedia(ctx context.Context, deviceID, title, locale string) error {
	return m.record(apiCall{Op: "playMedia", DeviceID: deviceID, Arg: title, Locale: locale})
}

func (m *MockCastAPI) SetVolume(ctx context.Context, deviceID string, level int) error {
	return m.record(apiCall{Op: "volume", DeviceID: deviceID, Arg: fmt.Sprint(level)})
}

func (m *MockCastAPI) Action(ctx context.Context, deviceID, action string) error {
	return m.record(apiCall{Op: "action", DeviceID: deviceID, Arg: action})
}

func (m *MockCastAPI) AssistantCommand(ctx context.Context, message string) error {
	return m.record(apiCall{Op: "assistant", Arg: message})
}

// mockCommandRecorder implements CommandRecorder.
type mockCommandRecorder struct {
	mu      sync.Mutex
	records []CommandRecord
}

func (r *mockCommandRecorder) RecordCommand(ctx context.Context, rec CommandRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *mockCommandRecorder) Records() []CommandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CommandRecord(nil), r.records...)
}

// mockStateRecorder implements StateRecorder.
type mockStateRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *mockStateRecorder) RecordState(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *mockStateRecorder) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

var errBroker = errors.New("broker unavailable")

// kitchen is the raw record used throughout the tests.
func kitchen() castapi.DeviceStatus {
	return castapi.DeviceStatus{
		ID:   "5",
		Name: "Kitchen",
		Status: castapi.PlayerStatus{
			Volume:      30,
			Status:      "PLAYING",
			Title:       "Song",
			Subtitle:    "Artist",
			Application: "App",
			ImageURL:    "u",
		},
	}
}

func decodeEvent(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("invalid event payload %s: %v", payload, err)
	}
	return m
}

// opIndex returns the position of the first op starting with prefix, or -1.
func opIndex(ops []string, prefix string) int {
	for i, op := range ops {
		if strings.HasPrefix(op, prefix) {
			return i
		}
	}
	return -1
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
