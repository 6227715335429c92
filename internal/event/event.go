package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	SnapshotCreated Type = iota + 1
	SnapshotRemoved
	TransferStarted
	TransferProgress
	TransferCompleted
	TransferFailed
)

var typeNames = [...]string{
	SnapshotCreated:   "SnapshotCreated",
	SnapshotRemoved:   "SnapshotRemoved",
	TransferStarted:   "TransferStarted",
	TransferProgress:  "TransferProgress",
	TransferCompleted: "TransferCompleted",
	TransferFailed:    "TransferFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string
	Bytes     int64 // bytes transferred so far
	Total     int64 // total bytes for the transfer
	Error     error
}

// Emit sends e without blocking. A nil channel or a slow consumer drops
// the event rather than stalling the transfer; the stream is advisory.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case ch <- e:
	default:
	}
}
