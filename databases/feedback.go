package databases

// go generate: mockery --name FeedbackDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/models"
)

const feedbackName = "feedback"

// FeedbackDatabase contains the methods to use with the feedback database
type FeedbackDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Feedback, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Feedback, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type feedbackDatabase struct {
	db DatabaseHelper
}

// NewFeedbackDatabase initializes a new instance of feedback database with the provided db connection
func NewFeedbackDatabase(db DatabaseHelper) FeedbackDatabase {
	return &feedbackDatabase{
		db: db,
	}
}

func (f *feedbackDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Feedback, error) {
	feedback := &models.Feedback{}
	err := f.db.Collection(feedbackName).FindOne(ctx, filter, opts...).Decode(&feedback)
	if err != nil {
		return nil, err
	}
	return feedback, nil
}

func (f *feedbackDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Feedback, error) {
	var feedbacks []models.Feedback
	cr, err := f.db.Collection(feedbackName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&feedbacks)
	if err != nil {
		return nil, err
	}
	return feedbacks, nil
}

func (f *feedbackDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return f.db.Collection(feedbackName).UpdateOne(ctx, filter, update, opts...)
}
