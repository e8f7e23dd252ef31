package databases

// go generate: mockery --name SchedulerLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lockName = "scheduler_locks"

// SchedulerLockDatabase provides a lease-style distributed lock so cron jobs
// run on exactly one instance at a time
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, holder string) error
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db: db,
	}
}

// TryAcquireLock upserts the lock document keyed by name. The filter only
// matches when the lock is expired or already held by this holder, so a live
// lock held elsewhere makes the upsert collide on _id and the duplicate key
// error signals that the lease was not acquired.
func (l *schedulerLockDatabase) TryAcquireLock(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id": name,
		"$or": []bson.M{
			{"holder": holder},
			{"expiresAt": bson.M{"$lt": primitive.NewDateTimeFromTime(now)}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"holder":    holder,
			"expiresAt": primitive.NewDateTimeFromTime(now.Add(ttl)),
		},
	}
	_, err := l.db.Collection(lockName).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *schedulerLockDatabase) ReleaseLock(ctx context.Context, name, holder string) error {
	return l.db.Collection(lockName).DeleteOne(ctx, bson.M{"_id": name, "holder": holder})
}
