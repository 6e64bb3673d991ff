package models

// FCMToken holds the structure for the fcmTokens collection in mongo.
// Entries are created and removed by the clients that register devices.
type FCMToken struct {
	ID    string `json:"_id" bson:"_id"`
	Token string `json:"token" bson:"token"` // FCM registration token
	// Active is nil when the field is absent, which counts as active
	Active *bool `json:"active,omitempty" bson:"active,omitempty"`
}

// Deliverable reports whether the token can receive pushes
func (t FCMToken) Deliverable() bool {
	if t.Token == "" {
		return false
	}
	return t.Active == nil || *t.Active
}
