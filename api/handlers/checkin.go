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

// CheckIn exported for testing purposes
type CheckIn struct {
	DB databases.CheckInDatabase
}

type createCheckInRequest struct {
	UserID string `json:"userID"`
	Mood   int    `json:"mood"`
	Note   string `json:"note"`
}

// CreateCheckInHandler records a daily mood check-in for a user
func (c CheckIn) CreateCheckInHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var req createCheckInRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if req.UserID == "" {
		config.ErrorStatus("userID is required", http.StatusBadRequest, w, errors.New("missing userID"))
		return
	}
	if req.Mood < 1 || req.Mood > 5 {
		config.ErrorStatus("mood must be between 1 and 5", http.StatusBadRequest, w, errors.New("mood out of range"))
		return
	}

	checkIn := models.CheckIn{
		ID: primitive.NewObjectID().Hex(),
		Details: models.CheckInDetails{
			UserID:    req.UserID,
			Mood:      req.Mood,
			Note:      req.Note,
			CreatedAt: primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	oID, _ := primitive.ObjectIDFromHex(checkIn.ID)
	doc := bson.M{
		"_id":     oID,
		"checkin": checkIn.Details,
		"__v":     checkIn.Version,
	}
	if _, err := c.DB.InsertOne(ctx, doc); err != nil {
		config.ErrorStatus("failed to create check-in", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(checkIn)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// CheckInsByUserIDHandler returns a user's check-in history, newest first
func (c CheckIn) CheckInsByUserIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	userID := mux.Vars(r)["user_id"]

	dbResp, err := c.DB.Find(ctx,
		bson.M{"checkin.userID": userID},
		options.Find().SetSort(bson.M{"checkin.createdAt": -1}),
	)
	if err != nil {
		config.ErrorStatus("failed to get check-ins by user ID", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the check-ins must be
	// greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.CheckIn{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
