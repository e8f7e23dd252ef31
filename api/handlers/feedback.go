package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// Feedback exported for testing purposes
type Feedback struct {
	DB  databases.FeedbackDatabase
	SDB databases.SessionDatabase
}

type submitFeedbackRequest struct {
	SessionID string `json:"sessionID"`
	UserID    string `json:"userID"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

// SubmitFeedbackHandler upserts a user's rating for a session. Re-submitting
// replaces the previous rating instead of stacking a second record.
func (f Feedback) SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var req submitFeedbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if req.SessionID == "" || req.UserID == "" {
		config.ErrorStatus("sessionID and userID are required", http.StatusBadRequest, w, errors.New("missing sessionID or userID"))
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		config.ErrorStatus("rating must be between 1 and 5", http.StatusBadRequest, w, errors.New("rating out of range"))
		return
	}

	sID, err := primitive.ObjectIDFromHex(req.SessionID)
	if err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}
	if _, err := f.SDB.FindOne(ctx, bson.M{"_id": sID}); err != nil {
		config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	filter := bson.M{
		"feedback.sessionID": req.SessionID,
		"feedback.userID":    req.UserID,
	}
	update := bson.M{
		"$set": bson.M{
			"feedback.rating":    req.Rating,
			"feedback.comment":   req.Comment,
			"feedback.updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"feedback.sessionID": req.SessionID,
			"feedback.userID":    req.UserID,
			"feedback.createdAt": now,
			"__v":                0,
		},
	}
	if _, err := f.DB.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		config.ErrorStatus("failed to submit feedback", http.StatusInternalServerError, w, err)
		return
	}

	dbResp, err := f.DB.FindOne(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get feedback", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// FeedbackBySessionIDHandler returns all feedback left on a session
func (f Feedback) FeedbackBySessionIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	if _, err := primitive.ObjectIDFromHex(sessionID); err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := f.DB.Find(ctx, bson.M{"feedback.sessionID": sessionID})
	if err != nil {
		config.ErrorStatus("failed to get feedback by session ID", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the feedback must be
	// greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.Feedback{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
