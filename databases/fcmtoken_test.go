package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/push-dispatcher/databases"
	"github.com/linesmerrill/push-dispatcher/databases/mocks"
	"github.com/linesmerrill/push-dispatcher/models"
)

func TestFCMTokenDatabase_FindActive(t *testing.T) {
	ctx := context.Background()
	active, inactive := true, false

	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.
		On("All", ctx, mock.Anything).
		Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.FCMToken)
		*arg = []models.FCMToken{
			{ID: "t1", Token: "device-1"},
			{ID: "t2", Token: "device-2", Active: &inactive},
			{ID: "t3", Token: "device-3", Active: &active},
			{ID: "t4", Active: &active},
		}
	})

	collectionHelper.On("Find", ctx, bson.M{}).Return(cursorHelper, nil)
	dbHelper.On("Collection", "fcmTokens").Return(collectionHelper)

	tokens, err := databases.NewFCMTokenDatabase(dbHelper).FindActive(ctx)

	assert.NoError(t, err)
	assert.Equal(t, []models.FCMToken{
		{ID: "t1", Token: "device-1"},
		{ID: "t3", Token: "device-3", Active: &active},
	}, tokens)
}

func TestFCMTokenDatabase_FindActiveError(t *testing.T) {
	ctx := context.Background()

	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	collectionHelper.On("Find", ctx, bson.M{}).Return(nil, errors.New("mocked-error"))
	dbHelper.On("Collection", "fcmTokens").Return(collectionHelper)

	tokens, err := databases.NewFCMTokenDatabase(dbHelper).FindActive(ctx)

	var readErr *databases.DirectoryReadError
	assert.Nil(t, tokens)
	assert.True(t, errors.As(err, &readErr))
	assert.EqualError(t, err, "failed to read fcm tokens: mocked-error")
}
