// Package influxdb provides InfluxDB connectivity for the cast bridge.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, speaker telemetry writes and health monitoring.
//
// Every snapshot the bridge publishes is also written as a speaker_state
// point, so volume and playback history can be graphed per device.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSpeakerState(influxdb.SpeakerState{DeviceID: "5", Name: "Kitchen", Volume: 30})
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly.
package influxdb
