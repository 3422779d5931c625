package cast

import (
	"strings"

	"github.com/nerrad567/cast-bridge/internal/infrastructure/config"
)

// Topic prefixes for FIMP event and command messages.
const (
	eventPrefix   = "pt:j1/mt:evt"
	commandPrefix = "pt:j1/mt:cmd"
)

// AssistantID is the reserved device id of the virtual assistant.
const AssistantID = "1"

// Channel is the per-device service channel. It becomes the _0/_1 address suffix.
type Channel int

const (
	// ChannelSiren carries the siren_ctrl service.
	ChannelSiren Channel = 0

	// ChannelMedia carries the media_player service.
	ChannelMedia Channel = 1
)

// suffix returns "_0" or "_1".
func (c Channel) suffix() string {
	if c == ChannelMedia {
		return "_1"
	}
	return "_0"
}

// TopicScheme derives every bus topic the bridge uses from the configured
// roots. It holds no state beyond the roots.
//
// Two different (id, channel) pairs never yield the same topic: the channel
// picks both the service root and the suffix, and configuration rejects
// equal roots.
type TopicScheme struct {
	refresh   string
	inclusion string
	sirenRoot string
	mediaRoot string
}

// NewTopicScheme builds a scheme from the mqtt.topics config section.
func NewTopicScheme(cfg config.MQTTTopicsConfig) TopicScheme {
	return TopicScheme{
		refresh:   cfg.Refresh,
		inclusion: cfg.Inclusion,
		sirenRoot: cfg.SirenRoot,
		mediaRoot: cfg.MediaRoot,
	}
}

// Refresh is the adapter command topic that forces an immediate poll.
func (s TopicScheme) Refresh() string { return s.refresh }

// Inclusion is the topic inclusion reports are published on.
func (s TopicScheme) Inclusion() string { return s.inclusion }

// root returns the service root for a channel.
func (s TopicScheme) root(ch Channel) string {
	if ch == ChannelMedia {
		return s.mediaRoot
	}
	return s.sirenRoot
}

// ServiceAddress returns root + "/ad:g<id>_<ch>".
func ServiceAddress(root, id string, ch Channel) string {
	return root + "/ad:g" + id + ch.suffix()
}

// Address returns the service address of a device channel, as used in
// inclusion reports.
func (s TopicScheme) Address(id string, ch Channel) string {
	return ServiceAddress(s.root(ch), id, ch)
}

// SirenEvent is where siren mode reports for id are published.
func (s TopicScheme) SirenEvent(id string) string {
	return eventPrefix + s.Address(id, ChannelSiren)
}

// MediaEvent is where media reports for id are published.
func (s TopicScheme) MediaEvent(id string) string {
	return eventPrefix + s.Address(id, ChannelMedia)
}

// SirenCommand is the siren command topic for id.
func (s TopicScheme) SirenCommand(id string) string {
	return commandPrefix + s.Address(id, ChannelSiren)
}

// MediaCommand is the media command topic for id.
func (s TopicScheme) MediaCommand(id string) string {
	return commandPrefix + s.Address(id, ChannelMedia)
}

// AssistantCommand is the command topic of the virtual assistant.
func (s TopicScheme) AssistantCommand() string {
	return s.SirenCommand(AssistantID)
}

// commandDeviceID extracts id from a command topic of channel ch.
// It returns false when topic is not shaped like that channel's command topic.
func (s TopicScheme) commandDeviceID(topic string, ch Channel) (string, bool) {
	prefix := commandPrefix + s.root(ch) + "/ad:g"
	suffix := ch.suffix()
	if len(topic) <= len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, suffix) {
		return "", false
	}
	return topic[len(prefix) : len(topic)-len(suffix)], true
}
