package databases

// go generate: mockery --name CheckInDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/models"
)

const checkInName = "checkins"

// CheckInDatabase contains the methods to use with the checkin database
type CheckInDatabase interface {
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.CheckIn, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
}

type checkInDatabase struct {
	db DatabaseHelper
}

// NewCheckInDatabase initializes a new instance of checkin database with the provided db connection
func NewCheckInDatabase(db DatabaseHelper) CheckInDatabase {
	return &checkInDatabase{
		db: db,
	}
}

func (c *checkInDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.CheckIn, error) {
	var checkIns []models.CheckIn
	cr, err := c.db.Collection(checkInName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&checkIns)
	if err != nil {
		return nil, err
	}
	return checkIns, nil
}

func (c *checkInDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(checkInName).InsertOne(ctx, document, opts...)
	return res, err
}
