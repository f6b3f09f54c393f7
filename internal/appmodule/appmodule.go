// Package appmodule defines the interface boundary between the
// gateway core and an attached application module (the thing that
// decides what a session's media and messages actually mean - a room,
// a stream, a bridge), grounded on the original Janus
// janus_plugin/janus_callbacks interface pair (original_source/plugins/plugin.h).
package appmodule

import "encoding/json"

// ResultKind mirrors janus_plugin_result_type: a module's response to
// a signaling message is either immediately final, pending with more
// to come asynchronously, or a core-level failure.
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultOKWait
	ResultError
)

// Result is what a Module returns from HandleMessage.
type Result struct {
	Kind    ResultKind
	Text    string          // populated for OKWait (why it's pending) and Error (why it failed)
	Content json.RawMessage // populated for OK
}

// OK builds an immediately-final result carrying content.
func OK(content json.RawMessage) Result { return Result{Kind: ResultOK, Content: content} }

// OKWait builds a pending result, with text explaining why.
func OKWait(text string) Result { return Result{Kind: ResultOKWait, Text: text} }

// Error builds a core-level failure result.
func Error(text string) Result { return Result{Kind: ResultError, Text: text} }

// SessionHandle is the opaque per-session identity the gateway hands
// a Module, matching janus_plugin_session: the module stores whatever
// it needs keyed by this value and the gateway never inspects it.
type SessionHandle interface{}

// Module is implemented by an attached application: it receives
// lifecycle and media callbacks from the gateway core, matching
// janus_plugin's create_session/handle_message/setup_media/
// incoming_rtp/incoming_rtcp/incoming_data/slow_link/hangup_media/
// destroy_session hook set.
type Module interface {
	// Name identifies the module for logging and attach-by-name lookups.
	Name() string
	// APICompatibility returns the gateway ABI version this module
	// expects. Neither Registry.Register nor Handle.Attach compares it
	// against a core version; a module is accepted whatever it returns.
	APICompatibility() int

	CreateSession(h SessionHandle) error
	HandleMessage(h SessionHandle, transaction string, message, jsep json.RawMessage) Result
	SetupMedia(h SessionHandle)
	IncomingRTP(h SessionHandle, video bool, buf []byte)
	IncomingRTCP(h SessionHandle, video bool, buf []byte)
	IncomingData(h SessionHandle, buf []byte)
	SlowLink(h SessionHandle, uplink, video bool)
	HangupMedia(h SessionHandle)
	DestroySession(h SessionHandle) error
	QuerySession(h SessionHandle) json.RawMessage
}

// Lifecycle is implemented by the module's top-level package, loaded
// once per process (not per session), matching janus_plugin's
// init/destroy pair.
type Lifecycle interface {
	Init(callbacks Callbacks, configPath string) error
	Destroy()
}
