package databases

// go generate: mockery --name FCMTokenDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/push-dispatcher/models"
)

const fcmTokenCollectionName = "fcmTokens"

// FCMTokenDatabase contains the methods to use with the fcm token database
type FCMTokenDatabase interface {
	FindActive(ctx context.Context) ([]models.FCMToken, error)
}

type fcmTokenDatabase struct {
	db DatabaseHelper
}

// NewFCMTokenDatabase initializes a new instance of fcm token database with the provided db connection
func NewFCMTokenDatabase(db DatabaseHelper) FCMTokenDatabase {
	return &fcmTokenDatabase{
		db: db,
	}
}

// FindActive reads every registered token and keeps the ones that have a token
// value and are not explicitly deactivated. An empty result is not an error.
func (f *fcmTokenDatabase) FindActive(ctx context.Context) ([]models.FCMToken, error) {
	cur, err := f.db.Collection(fcmTokenCollectionName).Find(ctx, bson.M{})
	if err != nil {
		return nil, &DirectoryReadError{Err: err}
	}
	var tokens []models.FCMToken
	if err := cur.All(ctx, &tokens); err != nil {
		return nil, &DirectoryReadError{Err: err}
	}

	active := make([]models.FCMToken, 0, len(tokens))
	for _, token := range tokens {
		if token.Deliverable() {
			active = append(active, token)
		}
	}
	return active, nil
}
