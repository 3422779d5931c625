package cast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/cast-bridge/internal/castapi"
)

type loopFixture struct {
	mqtt     *MockMQTTClient
	api      *MockCastAPI
	registry *Registry
	states   *mockStateRecorder
	loop     *SyncLoop
}

func newLoopFixture(interval time.Duration, devices ...castapi.DeviceStatus) *loopFixture {
	f := &loopFixture{
		mqtt:     NewMockMQTTClient(),
		api:      NewMockCastAPI(devices...),
		registry: NewRegistry(),
		states:   &mockStateRecorder{},
	}
	topics := testTopics()
	f.loop = NewSyncLoop(SyncLoopConfig{
		Fetcher:   f.api,
		Registry:  f.registry,
		Announcer: NewAnnouncer(f.mqtt, topics, 1, func(string, []byte) {}),
		Publisher: NewEventPublisher(f.mqtt, topics, 1),
		Interval:  interval,
		Recorder:  f.states,
	})
	return f
}

func TestSyncLoop_FirstCycle(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	topics := testTopics()

	f.loop.Cycle(context.Background())

	ops := f.mqtt.Ops()
	assistantSub := opIndex(ops, "sub "+topics.AssistantCommand())
	deviceSub := opIndex(ops, "sub "+topics.SirenCommand("5"))
	firstEvent := opIndex(ops, "pub "+topics.SirenEvent("5"))

	if assistantSub < 0 || deviceSub < 0 || firstEvent < 0 {
		t.Fatalf("ops = %v", ops)
	}
	if assistantSub > deviceSub {
		t.Errorf("assistant announced after device: %v", ops)
	}
	if deviceSub > firstEvent {
		t.Errorf("events published before the device was announced: %v", ops)
	}

	if n := len(f.mqtt.PublishedTo(testInclusion)); n != 2 {
		t.Errorf("inclusion reports = %d, want 2 (assistant and device)", n)
	}
	if n := len(f.mqtt.PublishedTo(topics.MediaEvent("5"))); n != 3 {
		t.Errorf("media events = %d, want 3", n)
	}

	snap, ok := f.registry.Get("5")
	if !ok || snap != NewSnapshot(kitchen()) {
		t.Errorf("registry entry = %+v, %v", snap, ok)
	}
	if got := f.states.Snapshots(); len(got) != 1 || got[0].ID != "5" {
		t.Errorf("recorded states = %+v", got)
	}
}

func TestSyncLoop_UnchangedPublishesNothing(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	ctx := context.Background()

	f.loop.Cycle(ctx)
	f.mqtt.ClearPublished()

	f.loop.Cycle(ctx)

	if n := len(f.mqtt.GetPublished()); n != 0 {
		t.Errorf("published %d messages for an unchanged device, want 0", n)
	}
	if len(f.states.Snapshots()) != 1 {
		t.Error("unchanged snapshot must not be recorded again")
	}
}

func TestSyncLoop_ChangePublishesAllFour(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	ctx := context.Background()
	f.loop.Cycle(ctx)
	f.mqtt.ClearPublished()

	changed := kitchen()
	changed.Status.Volume = 31
	f.api.SetDevices(changed)

	f.loop.Cycle(ctx)

	published := f.mqtt.GetPublished()
	if len(published) != 4 {
		t.Fatalf("published %d messages, want 4", len(published))
	}
	wantTypes := []string{TypeModeReport, TypeVolumeReport, TypePlaybackReport, TypeMetadataReport}
	for i, want := range wantTypes {
		if got := decodeEvent(t, published[i].Payload)["type"]; got != want {
			t.Errorf("message %d type = %v, want %s", i, got, want)
		}
	}

	if n := len(f.mqtt.PublishedTo(testInclusion)); n != 0 {
		t.Errorf("changed device re-announced %d times", n)
	}
	if snap, _ := f.registry.Get("5"); snap.Volume != 31 {
		t.Errorf("registry volume = %d, want 31", snap.Volume)
	}
}

func TestSyncLoop_ChangeDuringBrokerOutageIsResent(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	topics := testTopics()
	ctx := context.Background()
	f.loop.Cycle(ctx)

	changed := kitchen()
	changed.Status.Volume = 99
	f.api.SetDevices(changed)

	f.mqtt.SetPublishError(errBroker)
	f.loop.Cycle(ctx)
	if snap, _ := f.registry.Get("5"); snap.Volume != 30 {
		t.Fatalf("registry volume after failed publish = %d, want 30", snap.Volume)
	}
	if n := len(f.states.Snapshots()); n != 1 {
		t.Errorf("recorded states after failed publish = %d, want 1", n)
	}

	f.mqtt.SetPublishError(nil)
	f.mqtt.ClearPublished()
	f.loop.Cycle(ctx)
	f.loop.Cycle(ctx)

	volumeReports := 0
	for _, p := range f.mqtt.PublishedTo(topics.MediaEvent("5")) {
		ev := decodeEvent(t, p.Payload)
		if ev["type"] == TypeVolumeReport && ev["val"] == float64(99) {
			volumeReports++
		}
	}
	if volumeReports != 1 {
		t.Errorf("volume 99 reports after reconnect = %d, want 1", volumeReports)
	}
	if n := len(f.mqtt.PublishedTo(testInclusion)); n != 0 {
		t.Errorf("device re-announced %d times after reconnect", n)
	}
	if snap, _ := f.registry.Get("5"); snap.Volume != 99 {
		t.Errorf("registry volume = %d, want 99", snap.Volume)
	}
}

func TestSyncLoop_NewDeviceAnnouncedExactlyOnce(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	ctx := context.Background()
	f.loop.Cycle(ctx)

	hall := castapi.DeviceStatus{ID: "7", Name: "Hall"}
	f.api.SetDevices(kitchen(), hall)
	f.loop.Cycle(ctx)
	f.loop.Cycle(ctx)

	reports := 0
	for _, p := range f.mqtt.PublishedTo(testInclusion) {
		if decodeReport(t, p.Payload).Val.Address == "g7" {
			reports++
		}
	}
	if reports != 1 {
		t.Errorf("device 7 announced %d times, want 1", reports)
	}
	if !f.registry.Has("7") {
		t.Error("device 7 not stored")
	}
}

func TestSyncLoop_FetchFailure(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	ctx := context.Background()
	f.loop.Cycle(ctx)

	f.api.SetFetchError(&castapi.FetchError{Err: errors.New("connection refused")})
	f.mqtt.ClearPublished()
	f.loop.Cycle(ctx)

	if !f.loop.LastFetchFailed() || f.loop.FetchFailures() != 1 {
		t.Errorf("LastFetchFailed=%v FetchFailures=%d", f.loop.LastFetchFailed(), f.loop.FetchFailures())
	}
	if len(f.mqtt.GetPublished()) != 0 {
		t.Error("failed fetch must not publish")
	}
	if !f.registry.Has("5") {
		t.Error("failed fetch must not prune the registry")
	}

	f.api.SetFetchError(nil)
	f.loop.Cycle(ctx)
	if f.loop.LastFetchFailed() {
		t.Error("LastFetchFailed() = true after a good fetch")
	}
	if f.loop.Polls() != 3 {
		t.Errorf("Polls() = %d, want 3", f.loop.Polls())
	}
}

func TestSyncLoop_InitialFetchFailureStillAnnouncesAssistant(t *testing.T) {
	f := newLoopFixture(time.Hour)
	f.api.SetFetchError(errors.New("down"))

	f.loop.Cycle(context.Background())

	if n := len(f.mqtt.PublishedTo(testInclusion)); n != 1 {
		t.Errorf("inclusion reports = %d, want 1 (assistant)", n)
	}
}

func TestSyncLoop_RetriesFailedAnnouncement(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())
	ctx := context.Background()

	f.mqtt.SetSubscribeError(errBroker)
	f.loop.Cycle(ctx)

	// Events still go out and the device is known.
	if !f.registry.Has("5") {
		t.Fatal("device not stored")
	}

	f.mqtt.SetSubscribeError(nil)
	f.mqtt.ClearPublished()
	f.loop.Cycle(ctx)

	if n := len(f.mqtt.PublishedTo(testInclusion)); n != 2 {
		t.Errorf("inclusion reports on retry = %d, want 2 (assistant and device)", n)
	}
}

func TestSyncLoop_SkipsRecordsWithoutID(t *testing.T) {
	f := newLoopFixture(time.Hour, castapi.DeviceStatus{Name: "ghost"}, kitchen())

	f.loop.Cycle(context.Background())

	if f.registry.Len() != 1 {
		t.Errorf("registry has %d devices, want 1", f.registry.Len())
	}
}

func TestSyncLoop_RequestRefreshCoalesces(t *testing.T) {
	f := newLoopFixture(time.Hour)

	for n := 0; n < 5; n++ {
		f.loop.RequestRefresh()
	}

	if n := len(f.loop.refresh); n != 1 {
		t.Errorf("pending refreshes = %d, want 1", n)
	}
}

func TestSyncLoop_StartRunsImmediatelyAndOnRefresh(t *testing.T) {
	f := newLoopFixture(time.Hour, kitchen())

	f.loop.Start(context.Background())
	defer f.loop.Stop()

	waitFor(t, "initial cycle", func() bool { return f.api.Fetches() >= 1 })

	f.loop.RequestRefresh()
	waitFor(t, "refresh cycle", func() bool { return f.api.Fetches() >= 2 })
}

func TestSyncLoop_Ticks(t *testing.T) {
	f := newLoopFixture(10*time.Millisecond, kitchen())

	f.loop.Start(context.Background())
	waitFor(t, "ticked cycles", func() bool { return f.api.Fetches() >= 3 })

	f.loop.Stop()
	f.loop.Stop() // idempotent

	after := f.api.Fetches()
	time.Sleep(30 * time.Millisecond)
	if f.api.Fetches() != after {
		t.Error("loop kept polling after Stop")
	}
}

func TestSyncLoop_StopsOnContextCancel(t *testing.T) {
	f := newLoopFixture(10 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	f.loop.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		f.loop.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after context cancel")
	}
}
