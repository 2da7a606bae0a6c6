package offlineq

import "github.com/salahkhalfi/offlineq/types"

// Type aliases for convenience - re-export from types package.
type (
	Request             = types.Request
	Response            = types.Response
	Result              = types.Result
	SyntheticResponse   = types.SyntheticResponse
	QueuedOperation     = types.QueuedOperation
	Method              = types.Method
	Store               = types.Store
	Transport           = types.Transport
	TransportFunc       = types.TransportFunc
	TransportError      = types.TransportError
	HeaderResolver      = types.HeaderResolver
	Classifier          = types.Classifier
	ConnectivityWatcher = types.ConnectivityWatcher
	ConnectivityUpdate  = types.ConnectivityUpdate
	Notifier            = types.Notifier
	Event               = types.Event
	EventKind           = types.EventKind
	DrainSummary        = types.DrainSummary
	Logger              = types.Logger
	MetricsCollector    = types.MetricsCollector
)

// Re-export method constants for convenience.
const (
	MethodCreate = types.MethodCreate
	MethodUpdate = types.MethodUpdate
	MethodDelete = types.MethodDelete
)

// Re-export event kinds for convenience.
const (
	EventQueued            = types.EventQueued
	EventReplaySummary     = types.EventReplaySummary
	EventReplayItemDropped = types.EventReplayItemDropped
	EventOnline            = types.EventOnline
	EventOffline           = types.EventOffline
)
