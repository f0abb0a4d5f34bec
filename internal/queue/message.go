package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// MessageVersion is the payload version written by this build.
const MessageVersion = 1

// Message kinds.
const (
	KindSigned     = "signed"
	KindInvitation = "invitation"
)

var (
	ErrUnknownKind        = errors.New("unknown message kind")
	ErrMissingDocumentID  = errors.New("missing document id")
	ErrMissingRecipientID = errors.New("missing recipient id")
)

// Message is a notification job. It carries ids only; consumers reload the
// rows so access tokens and PDFs never travel through the queue.
type Message struct {
	Kind        string `json:"kind"`
	DocumentID  string `json:"documentId"`
	RecipientID string `json:"recipientId"`
	RequestID   string `json:"requestId,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// Validate checks the fields every consumer relies on.
func (m Message) Validate() error {
	switch m.Kind {
	case KindSigned, KindInvitation:
	default:
		return ErrUnknownKind
	}
	if strings.TrimSpace(m.DocumentID) == "" {
		return ErrMissingDocumentID
	}
	if strings.TrimSpace(m.RecipientID) == "" {
		return ErrMissingRecipientID
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
