package models

import "time"

// Chat is a conversation room. Rooms are keyed to an appointment or an order
// thread; Users lists the participant ids allowed in.
type Chat struct {
	Room       string    `json:"room" bson:"room"`
	EntityType string    `json:"entityType" bson:"entityType"` // "appointment" or "order"
	EntityID   string    `json:"entityId" bson:"entityId"`
	Users      []string  `json:"users" bson:"users"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

type ReplyRef struct {
	ID   string `json:"id" bson:"id"`
	User string `json:"user" bson:"user"`
	Text string `json:"text" bson:"text"`
}

type Message struct {
	MessageID string    `json:"messageid,omitempty" bson:"messageid,omitempty"`
	Room      string    `json:"room" bson:"room"`
	SenderID  string    `json:"senderId" bson:"senderId"`
	Text      string    `json:"text,omitempty" bson:"text,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty" bson:"fileUrl,omitempty"`
	FileType  string    `json:"fileType,omitempty" bson:"fileType,omitempty"`
	ReplyTo   *ReplyRef `json:"replyTo,omitempty" bson:"replyTo,omitempty"`
	Timestamp int64     `json:"timestamp" bson:"timestamp"`
	EditedAt  int64     `json:"editedAt,omitempty" bson:"editedAt,omitempty"`
}

// Index represents a search/indexing event published on the internal bus.
type Index struct {
	EntityType string `json:"entity_type"`
	Method     string `json:"method"`
	EntityId   string `json:"entity_id"`
	ItemId     string `json:"item_id"`
	ItemType   string `json:"item_type"`
}
