package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SchedulerLock holds the structure for the schedulerlocks collection in mongo
type SchedulerLock struct {
	Name      string             `json:"_id" bson:"_id"`
	Owner     string             `json:"owner" bson:"owner"`
	ExpiresAt primitive.DateTime `json:"expiresAt" bson:"expiresAt"`
}
