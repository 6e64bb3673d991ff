package databases

// go generate: mockery --name SchedulerLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/push-dispatcher/models"
)

const schedulerLockCollectionName = "schedulerlocks"

// SchedulerLockDatabase contains the methods to use with the scheduler lock database
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
	Holder(ctx context.Context, name string) (*models.SchedulerLock, error)
}

type schedulerLockDatabase struct {
	db  DatabaseHelper
	now func() time.Time
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db:  db,
		now: time.Now,
	}
}

// TryAcquireLock takes the named lock for owner until ttl elapses. The lock is
// granted when nobody holds it, when it expired, or when owner already holds it.
func (s *schedulerLockDatabase) TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := s.now()
	filter := bson.M{
		"_id": name,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$lt": primitive.NewDateTimeFromTime(now)}},
			{"owner": owner},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"owner":     owner,
			"expiresAt": primitive.NewDateTimeFromTime(now.Add(ttl)),
		},
	}

	_, err := s.db.Collection(schedulerLockCollectionName).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// the upsert collides with the live lock held by someone else
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseLock drops the named lock if owner still holds it
func (s *schedulerLockDatabase) ReleaseLock(ctx context.Context, name, owner string) error {
	_, err := s.db.Collection(schedulerLockCollectionName).DeleteOne(ctx, bson.M{"_id": name, "owner": owner})
	return err
}

// Holder returns the current state of the named lock
func (s *schedulerLockDatabase) Holder(ctx context.Context, name string) (*models.SchedulerLock, error) {
	lock := &models.SchedulerLock{}
	err := s.db.Collection(schedulerLockCollectionName).FindOne(ctx, bson.M{"_id": name}).Decode(lock)
	if err != nil {
		return nil, err
	}
	return lock, nil
}
