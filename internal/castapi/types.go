package castapi

// DeviceStatus is one record of the GET /device/ listing.
// Missing fields decode to their zero values.
type DeviceStatus struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Status PlayerStatus `json:"status"`
}

// PlayerStatus is the raw player state reported by the cast service.
type PlayerStatus struct {
	Volume int `json:"volume"`

	// Status is the raw player state, "PLAYING" while audio is playing.
	Status string `json:"status"`

	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Application string `json:"application"`
	ImageURL    string `json:"image_url"`
}

// PlayerStatePlaying is the raw status reported while audio is playing.
const PlayerStatePlaying = "PLAYING"

// mediaRequest is one element of the playMedia request body.
type mediaRequest struct {
	MediaTitle string `json:"mediaTitle"`
	GoogleTTS  string `json:"googleTTS"`
}

// assistantRequest is the body of POST /assistant/command.
type assistantRequest struct {
	Message string `json:"message"`
}
