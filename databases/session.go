package databases

// go generate: mockery --name SessionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/models"
)

const sessionName = "sessions"

// SessionDatabase contains the methods to use with the session database
type SessionDatabase interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) (*models.Session, error)
	Find(context.Context, interface{}, ...*options.FindOptions) ([]models.Session, error)
	FindPaged(ctx context.Context, filter interface{}, limit, page int) ([]models.Session, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Session, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
}

type sessionDatabase struct {
	db DatabaseHelper
}

// NewSessionDatabase initializes a new instance of session database with the provided db connection
func NewSessionDatabase(db DatabaseHelper) SessionDatabase {
	return &sessionDatabase{
		db: db,
	}
}

func (s *sessionDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Session, error) {
	session := &models.Session{}
	err := s.db.Collection(sessionName).FindOne(ctx, filter, opts...).Decode(&session)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Session, error) {
	var sessions []models.Session
	cr, err := s.db.Collection(sessionName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&sessions)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *sessionDatabase) FindPaged(ctx context.Context, filter interface{}, limit, page int) ([]models.Session, error) {
	return s.Find(ctx, filter, newMongoPaginate(limit, page).getPaginatedOpts())
}

func (s *sessionDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := s.db.Collection(sessionName).InsertOne(ctx, document, opts...)
	return res, err
}

func (s *sessionDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return s.db.Collection(sessionName).UpdateOne(ctx, filter, update, opts...)
}

// FindOneAndUpdate applies update to the single document matching filter and
// returns the post-update document. The update is atomic on the server, which
// is what makes the status compare-and-swap transitions race-safe: when the
// filter no longer matches (another caller won the race) mongo.ErrNoDocuments
// is returned and the document is untouched.
func (s *sessionDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Session, error) {
	session := &models.Session{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.db.Collection(sessionName).FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *sessionDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return s.db.Collection(sessionName).CountDocuments(ctx, filter, opts...)
}
