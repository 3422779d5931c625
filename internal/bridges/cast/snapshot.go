package cast

import "github.com/nerrad567/cast-bridge/internal/castapi"

// PlaybackStatus is the normalised playback state reported on the bus.
type PlaybackStatus string

const (
	PlaybackPlay  PlaybackStatus = "play"
	PlaybackPause PlaybackStatus = "pause"
	PlaybackStop  PlaybackStatus = "stop"
)

// SirenModeOff is the only siren mode the cast service can report.
const SirenModeOff = "off"

// Metadata describes the media currently loaded on a device.
type Metadata struct {
	Track    string
	Artist   string
	Album    string
	ImageURL string
}

// Snapshot is the normalised state of one device at one poll.
//
// Snapshot is comparable; two snapshots are equal when every field matches.
type Snapshot struct {
	ID        string
	Name      string
	Volume    int
	SirenMode string
	Playback  PlaybackStatus
	Metadata  Metadata
}

// NewSnapshot normalises a raw device record.
//
// Playback is play while the player reports PLAYING, pause while a title
// or application is still loaded, and stop otherwise.
func NewSnapshot(raw castapi.DeviceStatus) Snapshot {
	st := raw.Status

	playback := PlaybackStop
	switch {
	case st.Status == castapi.PlayerStatePlaying:
		playback = PlaybackPlay
	case st.Title != "" || st.Application != "":
		playback = PlaybackPause
	}

	return Snapshot{
		ID:        raw.ID,
		Name:      raw.Name,
		Volume:    st.Volume,
		SirenMode: SirenModeOff,
		Playback:  playback,
		Metadata: Metadata{
			Track:    st.Title,
			Artist:   st.Subtitle,
			Album:    st.Application,
			ImageURL: st.ImageURL,
		},
	}
}
