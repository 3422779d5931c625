package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/cast-bridge/internal/bridges/cast"
)

// deviceResponse is the JSON form of a speaker snapshot.
type deviceResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Volume    int              `json:"volume"`
	SirenMode string           `json:"siren_mode"`
	Playback  string           `json:"playback"`
	Metadata  metadataResponse `json:"metadata"`
}

type metadataResponse struct {
	Track    string `json:"track"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	ImageURL string `json:"image_url"`
}

func toDeviceResponse(s cast.Snapshot) deviceResponse {
	return deviceResponse{
		ID:        s.ID,
		Name:      s.Name,
		Volume:    s.Volume,
		SirenMode: s.SirenMode,
		Playback:  string(s.Playback),
		Metadata: metadataResponse{
			Track:    s.Metadata.Track,
			Artist:   s.Metadata.Artist,
			Album:    s.Metadata.Album,
			ImageURL: s.Metadata.ImageURL,
		},
	}
}

// handleListDevices returns the last published state of every speaker.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snaps := s.bridge.Devices()

	devices := make([]deviceResponse, 0, len(snaps))
	for _, snap := range snaps {
		devices = append(devices, toDeviceResponse(snap))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one speaker by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, ok := s.bridge.Device(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, toDeviceResponse(snap))
}
