package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// Counselor exported for testing purposes
type Counselor struct {
	DB databases.CounselorDatabase
}

// CreateCounselorHandler registers a new counselor. New counselors start
// unavailable with no active sessions until an admin flips them on.
func (c Counselor) CreateCounselorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var details models.CounselorDetails
	if err := json.Unmarshal(body, &details); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if details.Email == "" || details.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, errors.New("missing email or password"))
		return
	}

	existing, err := c.DB.FindOne(ctx, bson.M{"counselor.email": details.Email})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("failed to check for existing counselor", http.StatusInternalServerError, w, err)
		return
	}
	if existing != nil {
		config.ErrorStatus("a counselor with this email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email: %s", details.Email))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(details.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	details.Password = string(hash)
	details.ActiveSessions = 0
	now := primitive.NewDateTimeFromTime(time.Now())
	details.CreatedAt = now
	details.UpdatedAt = now

	counselor := models.Counselor{
		ID:      primitive.NewObjectID().Hex(),
		Details: details,
	}

	oID, _ := primitive.ObjectIDFromHex(counselor.ID)
	doc := bson.M{
		"_id":       oID,
		"counselor": counselor.Details,
		"__v":       counselor.Version,
	}
	if _, err := c.DB.InsertOne(ctx, doc); err != nil {
		config.ErrorStatus("failed to create counselor", http.StatusInternalServerError, w, err)
		return
	}

	counselor.Details.Password = ""
	b, err := json.Marshal(counselor)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// CounselorHandler returns all counselors, filterable by available=true|false
func (c Counselor) CounselorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{}
	switch r.URL.Query().Get("available") {
	case "true":
		filter["counselor.available"] = true
	case "false":
		filter["counselor.available"] = false
	}

	dbResp, err := c.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("failed to get counselors", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the counselors must be
	// greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.Counselor{}
	}
	for i := range dbResp {
		dbResp[i].Details.Password = ""
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CounselorByIDHandler returns a single counselor by ID
func (c Counselor) CounselorByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	counselorID := mux.Vars(r)["counselor_id"]
	cID, err := primitive.ObjectIDFromHex(counselorID)
	if err != nil {
		config.ErrorStatus("counselor ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to get counselor by ID", http.StatusNotFound, w, err)
		return
	}
	dbResp.Details.Password = ""

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateCounselorByIDHandler applies a partial update, including the
// availability toggle used by the assignment engine
func (c Counselor) UpdateCounselorByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	counselorID := mux.Vars(r)["counselor_id"]
	cID, err := primitive.ObjectIDFromHex(counselorID)
	if err != nil {
		config.ErrorStatus("counselor ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}

	set := bson.M{}
	for k, v := range fields {
		// activeSessions is owned by the assignment engine, not the API
		if k == "activeSessions" {
			continue
		}
		if k == "password" {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(fmt.Sprintf("%v", v)), bcrypt.DefaultCost)
			if hashErr != nil {
				config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, hashErr)
				return
			}
			v = string(hash)
		}
		set["counselor."+k] = v
	}
	set["counselor.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	res, err := c.DB.UpdateOne(ctx, bson.M{"_id": cID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update counselor", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get counselor by ID", http.StatusNotFound, w, errors.New("counselor not found"))
		return
	}

	dbResp, err := c.DB.FindOne(ctx, bson.M{"_id": cID})
	if err != nil {
		config.ErrorStatus("failed to get counselor by ID", http.StatusNotFound, w, err)
		return
	}
	dbResp.Details.Password = ""

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteCounselorByIDHandler removes a counselor record
func (c Counselor) DeleteCounselorByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	counselorID := mux.Vars(r)["counselor_id"]
	cID, err := primitive.ObjectIDFromHex(counselorID)
	if err != nil {
		config.ErrorStatus("counselor ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	if err := c.DB.DeleteOne(ctx, bson.M{"_id": cID}); err != nil {
		config.ErrorStatus("failed to delete counselor", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
