package cast

import "time"

// FIMP service names and message types used by the bridge.
const (
	ServiceSiren = "siren_ctrl"
	ServiceMedia = "media_player"

	serviceAdapter = "google"

	TypeModeReport      = "evt.mode.report"
	TypeVolumeReport    = "evt.volume.report"
	TypePlaybackReport  = "evt.playback.report"
	TypeMetadataReport  = "evt.metadata.report"
	TypeInclusionReport = "evt.thing.inclusion_report"

	typeModeSet     = "cmd.mode.set"
	typeVolumeSet   = "cmd.volume.set"
	typePlaybackSet = "cmd.playback.set"
)

// Value types carried in val_t.
const (
	ValString = "string"
	ValInt    = "int"
	ValStrMap = "str_map"
	ValObject = "object"
)

// EventMessage is a FIMP event published on a device event topic.
type EventMessage struct {
	Serv string `json:"serv"`
	Type string `json:"type"`
	Val  any    `json:"val"`
	ValT string `json:"val_t"`
}

// InclusionReport registers a device and its services with the hub.
// Topic: mqtt.topics.inclusion
type InclusionReport struct {
	Serv  string         `json:"serv"`
	Type  string         `json:"type"`
	ValT  string         `json:"val_t"`
	Val   ThingInclusion `json:"val"`
	Src   string         `json:"src"`
	Ver   string         `json:"ver"`
	UID   string         `json:"uid"`
	Topic string         `json:"topic"`
}

// ThingInclusion describes the device in an inclusion report.
type ThingInclusion struct {
	Address        string              `json:"address"`
	ProductHash    string              `json:"product_hash"`
	CommTech       string              `json:"comm_tech"`
	ProductName    string              `json:"product_name"`
	ManufacturerID string              `json:"manufacturer_id"`
	HwVer          string              `json:"hw_ver"`
	IsSensor       string              `json:"is_sensor"`
	PowerSource    string              `json:"power_source"`
	Services       []ServiceDescriptor `json:"services"`
}

// ServiceDescriptor is one service of an included device.
type ServiceDescriptor struct {
	Name       string              `json:"name"`
	Address    string              `json:"address"`
	Enabled    bool                `json:"enabled"`
	Interfaces []Interface         `json:"interfaces"`
	Groups     []string            `json:"groups"`
	Props      map[string][]string `json:"props"`
}

// Interface is a single message a service sends (out) or accepts (in).
type Interface struct {
	IntfT string `json:"intf_t"`
	MsgT  string `json:"msg_t"`
	Ver   string `json:"ver"`
	ValT  string `json:"val_t"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the periodic bridge health report.
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string           `json:"bridge"`
	Timestamp      time.Time        `json:"timestamp"`
	Status         HealthStatus     `json:"status"`
	Version        string           `json:"version"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	DevicesManaged int              `json:"devices_managed"`
	Statistics     BridgeStatistics `json:"statistics"`
	Reason         string           `json:"reason,omitempty"`
}

// BridgeStatistics contains operational counters.
type BridgeStatistics struct {
	Polls          uint64 `json:"polls"`
	FetchFailures  uint64 `json:"fetch_failures"`
	EventsSent     uint64 `json:"events_sent"`
	CommandsOK     uint64 `json:"commands_ok"`
	CommandsFailed uint64 `json:"commands_failed"`
}

// eventMessages builds the four reports published for a snapshot, in order.
func eventMessages(s Snapshot) [4]EventMessage {
	return [4]EventMessage{
		{Serv: ServiceSiren, Type: TypeModeReport, Val: s.SirenMode, ValT: ValString},
		{Serv: ServiceMedia, Type: TypeVolumeReport, Val: s.Volume, ValT: ValInt},
		{Serv: ServiceMedia, Type: TypePlaybackReport, Val: string(s.Playback), ValT: ValString},
		{Serv: ServiceMedia, Type: TypeMetadataReport, ValT: ValStrMap, Val: map[string]string{
			"track":  s.Metadata.Track,
			"artist": s.Metadata.Artist,
			"album":  s.Metadata.Album,
			"image":  s.Metadata.ImageURL,
		}},
	}
}
