package entity

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeLocation MessageType = "LOCATION"
	MessageTypeContact  MessageType = "CONTACT"
)

const MaxMessageLength = 2000

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeDocument, MessageTypeLocation, MessageTypeContact:
		return true
	}
	return false
}

// Attachment is an opaque client-supplied descriptor (uploaded file URL,
// location pin, contact card).
type Attachment struct {
	URL      string            `json:"url,omitempty" firestore:"url,omitempty"`
	Name     string            `json:"name,omitempty" firestore:"name,omitempty"`
	MimeType string            `json:"mimeType,omitempty" firestore:"mimeType,omitempty"`
	Size     int64             `json:"size,omitempty" firestore:"size,omitempty"`
	Meta     map[string]string `json:"meta,omitempty" firestore:"meta,omitempty"`
}

// Message is immutable after creation except for the one-way IsRead/ReadAt
// transition.
type Message struct {
	ID             string       `json:"id" firestore:"id"`
	ConversationID string       `json:"conversationId" firestore:"conversationId"`
	AdID           string       `json:"adId" firestore:"adId"`
	SenderID       string       `json:"senderId" firestore:"senderId"`
	ReceiverID     string       `json:"receiverId" firestore:"receiverId"`
	Content        string       `json:"content" firestore:"content"`
	MessageType    MessageType  `json:"messageType" firestore:"messageType"`
	Attachments    []Attachment `json:"attachments" firestore:"attachments"`
	IsRead         bool         `json:"isRead" firestore:"isRead"`
	ReadAt         *time.Time   `json:"readAt,omitempty" firestore:"readAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt" firestore:"createdAt"`
}
