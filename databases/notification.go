package databases

// go generate: mockery --name NotificationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/models"
)

const notificationName = "notifications"

// NotificationDatabase contains the methods to use with the notification database
type NotificationDatabase interface {
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Notification, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) error
}

type notificationDatabase struct {
	db DatabaseHelper
}

// NewNotificationDatabase initializes a new instance of notification database with the provided db connection
func NewNotificationDatabase(db DatabaseHelper) NotificationDatabase {
	return &notificationDatabase{
		db: db,
	}
}

func (n *notificationDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Notification, error) {
	var notifications []models.Notification
	cr, err := n.db.Collection(notificationName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&notifications)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (n *notificationDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := n.db.Collection(notificationName).InsertOne(ctx, document, opts...)
	return res, err
}

func (n *notificationDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return n.db.Collection(notificationName).DeleteOne(ctx, filter, opts...)
}
