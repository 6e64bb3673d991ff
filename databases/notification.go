package databases

// go generate: mockery --name NotificationDatabase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/push-dispatcher/models"
)

const notificationCollectionName = "notifications"

// errNotMarked is wrapped when an update matched nothing and the stored record
// is still pending
var errNotMarked = errors.New("update matched no pending record")

// NotificationDatabase contains the methods to use with the notification database
type NotificationDatabase interface {
	FindPending(ctx context.Context) ([]models.Notification, error)
	MarkSent(ctx context.Context, id string, diagnostic string) (bool, error)
}

type notificationDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewNotificationDatabase initializes a new instance of notification database with the provided db connection
func NewNotificationDatabase(db DatabaseHelper) NotificationDatabase {
	return &notificationDatabase{
		db:  db,
		now: time.Now,
	}
}

// pendingFilter matches records whose sent flag is missing, null or false
func pendingFilter() bson.M {
	return bson.M{"sent": bson.M{"$ne": true}}
}

// FindPending returns every notification that has not been marked as sent,
// in the natural order of the collection
func (n *notificationDatabase) FindPending(ctx context.Context) ([]models.Notification, error) {
	cur, err := n.db.Collection(notificationCollectionName).Find(ctx, pendingFilter())
	if err != nil {
		return nil, &QueueReadError{Err: err}
	}
	var notifications []models.Notification
	if err := cur.All(ctx, &notifications); err != nil {
		return nil, &QueueReadError{Err: err}
	}

	pending := make([]models.Notification, 0, len(notifications))
	for _, notification := range notifications {
		if notification.Pending() {
			pending = append(pending, notification)
		}
	}
	return pending, nil
}

// MarkSent moves a notification to its terminal state. A non-empty diagnostic
// records the notification as failed. The update only applies while the record
// is still pending, so a second call, or a concurrent run that got there first,
// leaves the stored state untouched and reports false. When nothing matched the
// record is read back, and anything but an already sent record is an error.
func (n *notificationDatabase) MarkSent(ctx context.Context, id string, diagnostic string) (bool, error) {
	set := bson.M{
		"sent":   true,
		"sentAt": primitive.NewDateTimeFromTime(n.now()),
	}
	if diagnostic != "" {
		set["error"] = diagnostic
	}

	filter := pendingFilter()
	filter["_id"] = idValue(id)

	collection := n.db.Collection(notificationCollectionName)
	res, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, &StatusWriteError{NotificationID: id, Err: err}
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	stored := &models.Notification{}
	if err := collection.FindOne(ctx, bson.M{"_id": idValue(id)}).Decode(stored); err != nil {
		return false, &StatusWriteError{NotificationID: id, Err: err}
	}
	if stored.Pending() {
		return false, &StatusWriteError{NotificationID: id, Err: errNotMarked}
	}
	return false, nil
}

// idValue matches an id decoded from either a string or an ObjectID _id. The
// driver decodes ObjectIDs into string fields as their hex form.
func idValue(id string) interface{} {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return id
	}
	return bson.M{"$in": bson.A{oid, id}}
}
