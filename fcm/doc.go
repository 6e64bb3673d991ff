// Package fcm talks to Firebase Cloud Messaging: it exchanges a service
// account for OAuth2 bearer tokens and sends HTTP v1 messages to single
// device tokens.
package fcm
