// Package cast bridges a cast speaker HTTP service to a FIMP MQTT bus.
//
// A SyncLoop polls the service on a fixed interval. Every device record
// becomes a Snapshot, which the Registry classifies as new, changed or
// unchanged. New devices are announced with an inclusion report and get
// their command topics subscribed. New and changed devices have all four
// event reports published (mode, volume, playback, metadata), never a
// partial delta.
//
// Inbound commands are parsed into a Route by TopicScheme.ParseTopic and
// dispatched by the Router:
//
//	refresh topic            -> immediate poll cycle
//	assistant topic (g1_0)   -> POST assistant/command
//	siren  g<id>_0, "off"    -> GET device/<id>/stop
//	siren  g<id>_0, text     -> POST device/<id>/playMedia
//	media  g<id>_1, integer  -> GET device/<id>/volume/<n>
//	media  g<id>_1, text     -> GET device/<id>/<text>
//
// Topic layout:
//
//	pt:j1/mt:evt<siren_root>/ad:g<id>_0   mode reports
//	pt:j1/mt:evt<media_root>/ad:g<id>_1   volume, playback, metadata reports
//	pt:j1/mt:cmd<siren_root>/ad:g<id>_0   siren commands
//	pt:j1/mt:cmd<media_root>/ad:g<id>_1   media commands
//
// No error in this package stops the bridge. Fetch failures skip a cycle,
// failed commands and malformed payloads are logged and dropped.
package cast
