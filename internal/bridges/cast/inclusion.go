package cast

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Inclusion report constants.
const (
	inclusionSource  = "fh-google"
	inclusionVersion = "1"
	manufacturer     = "Google"
	commTech         = "google"
	powerSource      = "ac"

	assistantHash = "00001"
	assistantName = "Assistant"
)

var (
	assistantModes = []string{"on", "off", "fire", "CO", "intrusion", "door"}
	deviceModes    = []string{"on", "off", "fire", "CO", "intrusion", "door", "playback"}
	playbackModes  = []string{"play", "pause", "stop", "next_track", "previous_track"}
)

// Announcer registers devices with the hub and subscribes their command
// topics. Each device, and the assistant, is announced at most once per
// process. The assistant is tracked apart from devices, so a vendor device
// with id "1" is still announced.
//
// Thread Safety: All methods are safe for concurrent use.
type Announcer struct {
	client  MQTTClient
	topics  TopicScheme
	qos     byte
	handler func(topic string, payload []byte)

	mu        sync.Mutex
	announced map[string]bool
}

// NewAnnouncer creates an announcer. handler receives messages on every
// command topic it subscribes.
func NewAnnouncer(client MQTTClient, topics TopicScheme, qos byte, handler func(topic string, payload []byte)) *Announcer {
	return &Announcer{
		client:    client,
		topics:    topics,
		qos:       qos,
		handler:   handler,
		announced: make(map[string]bool),
	}
}

// AnnounceDevice subscribes the siren and media command topics of snap
// and publishes its inclusion report.
//
// It does nothing when the id was already announced. A failed attempt
// leaves the id unannounced so a later call retries it.
func (a *Announcer) AnnounceDevice(snap Snapshot) error {
	return a.announce(deviceKey(snap.ID),
		[]string{a.topics.SirenCommand(snap.ID), a.topics.MediaCommand(snap.ID)},
		a.deviceReport(snap))
}

// AnnounceAssistant subscribes the assistant command topic and publishes
// its inclusion report.
func (a *Announcer) AnnounceAssistant() error {
	return a.announce(assistantKey,
		[]string{a.topics.AssistantCommand()},
		a.assistantReport())
}

// Announced reports whether the device id has been announced.
func (a *Announcer) Announced(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.announced[deviceKey(id)]
}

// AssistantAnnounced reports whether the assistant has been announced.
func (a *Announcer) AssistantAnnounced() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.announced[assistantKey]
}

// assistantKey cannot collide with deviceKey, which always starts with "g".
const assistantKey = "assistant"

func deviceKey(id string) string { return "g" + id }

func (a *Announcer) announce(key string, commandTopics []string, report InclusionReport) error {
	// Held for the whole attempt so concurrent callers cannot double-announce.
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.announced[key] {
		return nil
	}

	for _, topic := range commandTopics {
		if err := a.client.Subscribe(topic, a.qos, a.handler); err != nil {
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding inclusion report for %s: %w", report.Val.Address, err)
	}
	if err := a.client.Publish(a.topics.Inclusion(), payload, a.qos, false); err != nil {
		return fmt.Errorf("publishing inclusion report for %s: %w", report.Val.Address, err)
	}

	a.announced[key] = true
	return nil
}

// deviceReport builds the inclusion report of a physical speaker.
func (a *Announcer) deviceReport(snap Snapshot) InclusionReport {
	return a.report(snap.ID, snap.ID, snap.Name, []ServiceDescriptor{
		{
			Name:    ServiceSiren,
			Address: a.topics.Address(snap.ID, ChannelSiren),
			Enabled: true,
			Interfaces: []Interface{
				{IntfT: "out", MsgT: TypeModeReport, Ver: "1", ValT: ValString},
				{IntfT: "in", MsgT: typeModeSet, Ver: "1", ValT: ValString},
			},
			Groups: []string{"ch_0"},
			Props:  map[string][]string{"sup_modes": deviceModes},
		},
		{
			Name:    ServiceMedia,
			Address: a.topics.Address(snap.ID, ChannelMedia),
			Enabled: true,
			Interfaces: []Interface{
				{IntfT: "out", MsgT: TypeVolumeReport, Ver: "1", ValT: ValInt},
				{IntfT: "in", MsgT: typeVolumeSet, Ver: "1", ValT: ValInt},
				{IntfT: "out", MsgT: TypePlaybackReport, Ver: "1", ValT: ValString},
				{IntfT: "in", MsgT: typePlaybackSet, Ver: "1", ValT: ValString},
				{IntfT: "out", MsgT: TypeMetadataReport, Ver: "1", ValT: ValStrMap},
			},
			Groups: []string{"ch_1"},
			Props:  map[string][]string{"sup_playback": playbackModes},
		},
	})
}

// assistantReport builds the inclusion report of the virtual assistant.
func (a *Announcer) assistantReport() InclusionReport {
	return a.report(AssistantID, assistantHash, assistantName, []ServiceDescriptor{
		{
			Name:    ServiceSiren,
			Address: a.topics.Address(AssistantID, ChannelSiren),
			Enabled: true,
			Interfaces: []Interface{
				{IntfT: "out", MsgT: TypeModeReport, Ver: "1", ValT: ValString},
				{IntfT: "in", MsgT: typeModeSet, Ver: "1", ValT: ValString},
			},
			Groups: []string{"ch_0"},
			Props:  map[string][]string{"sup_modes": assistantModes},
		},
	})
}

// report fills the envelope shared by every inclusion report.
// The uid of a report is its product hash.
func (a *Announcer) report(id, hash, name string, services []ServiceDescriptor) InclusionReport {
	return InclusionReport{
		Serv: serviceAdapter,
		Type: TypeInclusionReport,
		ValT: ValObject,
		Val: ThingInclusion{
			Address:        "g" + id,
			ProductHash:    hash,
			CommTech:       commTech,
			ProductName:    name,
			ManufacturerID: manufacturer,
			HwVer:          "1",
			IsSensor:       "0",
			PowerSource:    powerSource,
			Services:       services,
		},
		Src:   inclusionSource,
		Ver:   inclusionVersion,
		UID:   hash,
		Topic: a.topics.Inclusion(),
	}
}
