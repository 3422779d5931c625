package main

import (
	"context"

	"github.com/nerrad567/cast-bridge/internal/audit"
	"github.com/nerrad567/cast-bridge/internal/bridges/cast"
	"github.com/nerrad567/cast-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/cast-bridge/internal/infrastructure/mqtt"
)

// mqttBridgeAdapter adapts the infrastructure MQTT client to the cast
// bridge's MQTTClient interface. The difference is the handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Cast bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements cast.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements cast.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Routing errors are logged by the bridge itself.
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements cast.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// influxStateRecorder writes every published snapshot to InfluxDB.
type influxStateRecorder struct {
	client *influxdb.Client
}

// RecordState implements cast.StateRecorder.
func (r *influxStateRecorder) RecordState(snap cast.Snapshot) {
	r.client.WriteSpeakerState(influxdb.SpeakerState{
		DeviceID: snap.ID,
		Name:     snap.Name,
		Volume:   snap.Volume,
		Playback: string(snap.Playback),
	})
}

// auditCommandRecorder queues every routed command for the SQLite audit log.
type auditCommandRecorder struct {
	recorder *audit.Recorder
}

// RecordCommand implements cast.CommandRecorder.
func (r *auditCommandRecorder) RecordCommand(_ context.Context, rec cast.CommandRecord) {
	r.recorder.Record(toCommandLog(rec))
}

// toCommandLog converts a routed command into an audit entry.
func toCommandLog(rec cast.CommandRecord) *audit.CommandLog {
	entry := &audit.CommandLog{
		Route:    rec.Route.String(),
		DeviceID: rec.DeviceID,
		Value:    rec.Value,
		Success:  rec.Err == nil,
	}
	if rec.Err != nil {
		entry.Error = rec.Err.Error()
	}
	return entry
}
