package mailer

// Address pairs a display name with an email address.
type Address struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Message is the fully-resolved payload handed to a transport.
type Message struct {
	From    Address
	To      []Address
	Subject string
	HTML    string
}

// Receipt is the transport's acknowledgement for one accepted message.
type Receipt struct {
	MessageID string `json:"message_id"`
	Response  string `json:"response,omitempty"`
}

// SendRequest describes one requested send. It is treated as immutable once
// constructed; the orchestrator never mutates it.
type SendRequest struct {
	UserID       int64
	From         *Address
	To           []Address
	Subject      string
	HTML         string
	Placeholders map[string]string
}

// Delivery reports which transport accepted the message.
type Delivery struct {
	Provider string  `json:"provider"`
	Receipt  Receipt `json:"receipt"`
}
