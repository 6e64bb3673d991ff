package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Notification holds the structure for the notifications collection in mongo
type Notification struct {
	ID      string              `json:"_id" bson:"_id"`
	Title   string              `json:"title" bson:"title"`
	Message string              `json:"message" bson:"message"`
	Sent    bool                `json:"sent" bson:"sent,omitempty"`
	SentAt  *primitive.DateTime `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	Error   string              `json:"error,omitempty" bson:"error,omitempty"`
}

// Pending reports whether the notification still has to be dispatched
func (n Notification) Pending() bool {
	return !n.Sent
}
