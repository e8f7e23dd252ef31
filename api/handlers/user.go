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
	"golang.org/x/crypto/bcrypt"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// User exported for testing purposes
type User struct {
	DB databases.UserDatabase
}

// CreateUserHandler registers a new portal user. The password is stored as a
// bcrypt hash and never returned.
func (u User) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var details models.UserDetails
	if err := json.Unmarshal(body, &details); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if details.Email == "" || details.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w, errors.New("missing email or password"))
		return
	}

	count, err := u.DB.CountDocuments(ctx, bson.M{"user.email": details.Email})
	if err != nil {
		config.ErrorStatus("failed to check for existing user", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("a user with this email already exists", http.StatusConflict, w, fmt.Errorf("duplicate email: %s", details.Email))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(details.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	details.Password = string(hash)
	if details.Role == "" {
		details.Role = models.SenderRoleUser
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	details.CreatedAt = now
	details.UpdatedAt = now

	user := models.User{
		ID:      primitive.NewObjectID().Hex(),
		Details: details,
	}

	oID, _ := primitive.ObjectIDFromHex(user.ID)
	doc := bson.M{
		"_id":  oID,
		"user": user.Details,
		"__v":  user.Version,
	}
	if _, err := u.DB.InsertOne(ctx, doc); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	user.Details.Password = ""
	b, err := json.Marshal(user)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// UserHandler returns all users
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get users", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the users must be
	// greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.User{}
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

// UserByIDHandler returns a single user by ID
func (u User) UserByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("user ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
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

// UpdateUserByIDHandler applies a partial update to a user record
func (u User) UpdateUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("user ID is not a valid ObjectID", http.StatusBadRequest, w, err)
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
		if k == "password" {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(fmt.Sprintf("%v", v)), bcrypt.DefaultCost)
			if hashErr != nil {
				config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, hashErr)
				return
			}
			v = string(hash)
		}
		set["user."+k] = v
	}
	set["user.updatedAt"] = primitive.NewDateTimeFromTime(time.Now())

	res, err := u.DB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": set})
	if err != nil {
		config.ErrorStatus("failed to update user", http.StatusInternalServerError, w, err)
		return
	}
	if res.MatchedCount == 0 {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, errors.New("user not found"))
		return
	}

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
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

// DeleteUserByIDHandler removes a user record
func (u User) DeleteUserByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	userID := mux.Vars(r)["user_id"]
	uID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		config.ErrorStatus("user ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	if err := u.DB.DeleteOne(ctx, bson.M{"_id": uID}); err != nil {
		config.ErrorStatus("failed to delete user", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
