package databases

// go generate: mockery --name CounselorDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/models"
)

const counselorName = "counselors"

// CounselorDatabase contains the methods to use with the counselor database
type CounselorDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Counselor, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Counselor, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) error
}

type counselorDatabase struct {
	db DatabaseHelper
}

// NewCounselorDatabase initializes a new instance of counselor database with the provided db connection
func NewCounselorDatabase(db DatabaseHelper) CounselorDatabase {
	return &counselorDatabase{
		db: db,
	}
}

func (c *counselorDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Counselor, error) {
	counselor := &models.Counselor{}
	err := c.db.Collection(counselorName).FindOne(ctx, filter, opts...).Decode(&counselor)
	if err != nil {
		return nil, err
	}
	return counselor, nil
}

func (c *counselorDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Counselor, error) {
	var counselors []models.Counselor
	cr, err := c.db.Collection(counselorName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&counselors)
	if err != nil {
		return nil, err
	}
	return counselors, nil
}

func (c *counselorDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(counselorName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *counselorDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(counselorName).UpdateOne(ctx, filter, update, opts...)
}

func (c *counselorDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(counselorName).DeleteOne(ctx, filter, opts...)
}
