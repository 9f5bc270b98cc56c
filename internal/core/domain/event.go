package domain

// ChangeKind names what happened to the coordinates collection.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeTopic is the destination subscribers listen on.
const ChangeTopic = "/topic"

// ChangeEvent tells subscribers that something changed. It carries no resource
// data; receivers are expected to re-fetch.
type ChangeEvent struct {
	Kind    ChangeKind `json:"kind"`
	Message string     `json:"message"`
}

// NewChangeEvent returns the event for kind with its human-readable message.
func NewChangeEvent(kind ChangeKind) ChangeEvent {
	var msg string
	switch kind {
	case ChangeCreated:
		msg = "New coordinates added"
	case ChangeUpdated:
		msg = "Coordinates updated"
	case ChangeDeleted:
		msg = "Coordinates deleted"
	default:
		msg = "Coordinates changed"
	}
	return ChangeEvent{Kind: kind, Message: msg}
}
