package domain

// EventKind classifies an inbound transport event.
type EventKind string

const (
	EventText    EventKind = "text"
	EventButton  EventKind = "button"
	EventContact EventKind = "contact"
	// EventStart carries an optional invite token from a deep link.
	EventStart EventKind = "start"
)

// Event is a single inbound message from a transport.
type Event struct {
	UserID  string    `json:"user_id"`
	Kind    EventKind `json:"kind"`
	Payload string    `json:"payload"`
}

// Button is one abstract choice; Value is the canonical payload sent back.
type Button struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Document is an exported file attached to a view.
type Document struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Data     []byte `json:"data"`
}

// View is the transport-neutral reply rendered for the user.
type View struct {
	Text           string     `json:"text"`
	Buttons        [][]Button `json:"buttons,omitempty"`
	RequestContact bool       `json:"request_contact,omitempty"`
	Question       string     `json:"question,omitempty"`
	Document       *Document  `json:"document,omitempty"`
	Stage          Stage      `json:"stage"`
	Step           Step       `json:"step"`
}
