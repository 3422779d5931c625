package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// speakerMeasurement is written once per published snapshot.
const speakerMeasurement = "speaker_state"

// SpeakerState is one observation of a cast device.
type SpeakerState struct {
	DeviceID string
	Name     string
	Volume   int
	Playback string
}

// Playing reports whether the device was actively playing.
func (s SpeakerState) Playing() bool {
	return s.Playback == "play"
}

// WriteSpeakerState queues a speaker_state point tagged by device_id and
// name. It does nothing after Close.
func (c *Client) WriteSpeakerState(state SpeakerState) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(speakerPoint(state, time.Now()))
	c.written.Add(1)
}

func speakerPoint(state SpeakerState, ts time.Time) *write.Point {
	return write.NewPoint(speakerMeasurement,
		map[string]string{
			"device_id": state.DeviceID,
			"name":      state.Name,
		},
		map[string]any{
			"volume":   state.Volume,
			"playing":  state.Playing(),
			"playback": state.Playback,
		},
		ts,
	)
}
