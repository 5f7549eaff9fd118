package mailer

import (
	"encoding/json"
	"time"
)

// Message is one outbound email, queued for asynchronous delivery.
type Message struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

func NewMessage(to, subject, body string) Message {
	return Message{
		To:       to,
		Subject:  subject,
		Body:     body,
		QueuedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON creates a message from JSON bytes
func MessageFromJSON(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
