package cast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// RouteKind identifies what an inbound topic addresses.
type RouteKind int

const (
	// RouteNone means the topic belongs to nothing the bridge handles.
	RouteNone RouteKind = iota

	// RouteRefresh forces an immediate poll cycle.
	RouteRefresh

	// RouteAssistant forwards val to the assistant as free text.
	RouteAssistant

	// RouteSiren targets the siren channel of a device.
	RouteSiren

	// RouteMedia targets the media channel of a device.
	RouteMedia
)

// String returns the route name recorded in the command audit log.
func (k RouteKind) String() string {
	switch k {
	case RouteRefresh:
		return "refresh"
	case RouteAssistant:
		return "assistant"
	case RouteSiren:
		return "siren"
	case RouteMedia:
		return "media"
	default:
		return "none"
	}
}

// Route is the parsed destination of an inbound command.
// DeviceID is set for RouteSiren and RouteMedia only.
type Route struct {
	Kind     RouteKind
	DeviceID string
}

// ParseTopic resolves topic against the scheme. known reports whether a
// device id is in the registry; command topics of unknown ids yield RouteNone.
//
// The refresh topic wins over everything, then the assistant topic, so a
// vendor device with id "1" can only be reached through its media channel.
func (s TopicScheme) ParseTopic(topic string, known func(id string) bool) Route {
	switch topic {
	case s.Refresh():
		return Route{Kind: RouteRefresh}
	case s.AssistantCommand():
		return Route{Kind: RouteAssistant}
	}

	if id, ok := s.commandDeviceID(topic, ChannelSiren); ok && known(id) {
		return Route{Kind: RouteSiren, DeviceID: id}
	}
	if id, ok := s.commandDeviceID(topic, ChannelMedia); ok && known(id) {
		return Route{Kind: RouteMedia, DeviceID: id}
	}

	return Route{Kind: RouteNone}
}

// commandValue is the decoded val of an inbound command.
type commandValue struct {
	text  string
	num   int
	isInt bool
}

// String returns val as text. Integers use their decimal form.
func (v commandValue) String() string {
	if v.isInt {
		return strconv.Itoa(v.num)
	}
	return v.text
}

// commandEnvelope is the inbound FIMP command body. Only val is used.
type commandEnvelope struct {
	Val any `json:"val"`
}

// decodeCommand extracts val from an inbound payload.
//
// Integral numbers decode as integers. Other numbers and booleans are kept
// as their JSON text. Objects and arrays are rejected.
func decodeCommand(topic string, payload []byte) (commandValue, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var env commandEnvelope
	if err := dec.Decode(&env); err != nil {
		return commandValue{}, &DecodeError{Topic: topic, Reason: "payload is not a JSON object", Err: err}
	}

	switch v := env.Val.(type) {
	case nil:
		return commandValue{}, &DecodeError{Topic: topic, Reason: "val is missing"}
	case string:
		return commandValue{text: v}, nil
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil {
			return commandValue{num: n, isInt: true}, nil
		}
		return commandValue{text: v.String()}, nil
	case bool:
		return commandValue{text: strconv.FormatBool(v)}, nil
	default:
		return commandValue{}, &DecodeError{
			Topic:  topic,
			Reason: fmt.Sprintf("val has type %T", v),
			Err:    ErrUnsupportedValue,
		}
	}
}

// RouterOptions configures a Router.
type RouterOptions struct {
	API      CastAPI
	Topics   TopicScheme
	Registry *Registry

	// Locale is sent as googleTTS with spoken messages.
	Locale string

	// Refresh requests an immediate poll cycle. It must not block.
	Refresh func()

	// Recorder is optional.
	Recorder CommandRecorder

	// Logger is optional.
	Logger Logger
}

// Router maps inbound bus commands to cast service calls.
//
// Thread Safety: Handle may be called concurrently.
type Router struct {
	api      CastAPI
	topics   TopicScheme
	registry *Registry
	locale   string
	refresh  func()
	recorder CommandRecorder
	logger   Logger

	ok     atomic.Uint64
	failed atomic.Uint64
}

// NewRouter creates a router.
func NewRouter(opts RouterOptions) *Router {
	refresh := opts.Refresh
	if refresh == nil {
		refresh = func() {}
	}
	return &Router{
		api:      opts.API,
		topics:   opts.Topics,
		registry: opts.Registry,
		locale:   opts.Locale,
		refresh:  refresh,
		recorder: opts.Recorder,
		logger:   orNop(opts.Logger),
	}
}

// HandleMessage is the MQTT handler form of Handle. Errors are logged.
func (r *Router) HandleMessage(ctx context.Context, topic string, payload []byte) {
	err := r.Handle(ctx, topic, payload)
	if err == nil {
		return
	}
	if errors.Is(err, ErrInvalidPayload) {
		r.logger.Warn("dropping command", "topic", topic, "error", err)
		return
	}
	r.logger.Error("command failed", "topic", topic, "error", err)
}

// Handle routes one inbound message.
//
// Messages on topics the bridge does not own return nil. A malformed payload
// returns a *DecodeError; a rejected vendor call returns the
// *castapi.CommandError from the API.
func (r *Router) Handle(ctx context.Context, topic string, payload []byte) error {
	route := r.topics.ParseTopic(topic, r.registry.Has)
	if route.Kind == RouteNone {
		return nil
	}

	val, err := decodeCommand(topic, payload)
	if err != nil {
		return err
	}
	if route.Kind == RouteMedia && !val.isInt && !validAction(val.text) {
		return &DecodeError{Topic: topic, Reason: fmt.Sprintf("invalid media action %q", val.text), Err: ErrUnsupportedValue}
	}

	err = r.dispatch(ctx, route, val)

	if err != nil {
		r.failed.Add(1)
	} else {
		r.ok.Add(1)
	}
	if r.recorder != nil {
		r.recorder.RecordCommand(ctx, CommandRecord{
			Route:    route.Kind,
			DeviceID: route.DeviceID,
			Value:    val.String(),
			Err:      err,
		})
	}

	return err
}

func (r *Router) dispatch(ctx context.Context, route Route, val commandValue) error {
	switch route.Kind {
	case RouteRefresh:
		r.logger.Debug("refresh requested")
		r.refresh()
		return nil

	case RouteAssistant:
		return r.api.AssistantCommand(ctx, val.String())

	case RouteSiren:
		if !val.isInt && val.text == SirenModeOff {
			return r.api.Stop(ctx, route.DeviceID)
		}
		return r.api.PlayMedia(ctx, route.DeviceID, val.String(), r.locale)

	case RouteMedia:
		if val.isInt {
			return r.api.SetVolume(ctx, route.DeviceID, val.num)
		}
		return r.api.Action(ctx, route.DeviceID, val.text)
	}

	return nil
}

// validAction reports whether action can be used as a single path segment
// of the vendor action endpoint.
func validAction(action string) bool {
	a := strings.TrimSpace(action)
	return a != "" && a != "." && a != ".."
}

// Stats returns the number of succeeded and failed commands.
func (r *Router) Stats() (ok, failed uint64) {
	return r.ok.Load(), r.failed.Load()
}
