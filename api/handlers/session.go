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
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/api/assignment"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// Session exported for testing purposes
type Session struct {
	DB     databases.SessionDatabase
	Engine *assignment.Engine
}

type createSessionRequest struct {
	UserID      string      `json:"userID"`
	PulseLevel  int         `json:"pulseLevel"`
	ScheduledAt interface{} `json:"scheduledAt,omitempty"`
}

type sessionNotesRequest struct {
	Notes string `json:"notes"`
}

type activateSessionRequest struct {
	CounselorID string `json:"counselorID"`
}

// CreateSessionHandler creates a new session request in the pending state
func (s Session) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}

	var req createSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if req.UserID == "" {
		config.ErrorStatus("userID is required", http.StatusBadRequest, w, errors.New("missing userID"))
		return
	}
	// pulseLevel is an optional 0-5 distress score; an absent field decodes
	// to 0, which means unset
	if req.PulseLevel < 0 || req.PulseLevel > 5 {
		config.ErrorStatus("pulseLevel must be between 0 and 5", http.StatusBadRequest, w, errors.New("pulseLevel out of range"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	session := models.Session{
		ID: primitive.NewObjectID().Hex(),
		Details: models.SessionDetails{
			UserID:      req.UserID,
			Status:      models.SessionStatusPending,
			PulseLevel:  req.PulseLevel,
			ScheduledAt: req.ScheduledAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	oID, _ := primitive.ObjectIDFromHex(session.ID)
	doc := bson.M{
		"_id":     oID,
		"session": session.Details,
		"__v":     session.Version,
	}
	if _, err := s.DB.InsertOne(ctx, doc); err != nil {
		config.ErrorStatus("failed to create session", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("session created", "sessionId", session.ID, "userId", req.UserID)

	b, err := json.Marshal(session)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// SessionHandler returns all sessions, filterable by user_id, counselor_id
// and status query params
func (s Session) SessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	filter := bson.M{}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		filter["session.userID"] = userID
	}
	if counselorID := r.URL.Query().Get("counselor_id"); counselorID != "" {
		filter["session.counselorID"] = counselorID
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["session.status"] = status
	}

	Page := getPage(0, r)
	limit := 10

	dbResp, err := s.DB.FindPaged(ctx, filter, limit, Page)
	if err != nil {
		config.ErrorStatus("failed to get sessions", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the sessions must be
	// greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.Session{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SessionByIDHandler returns a single session by its ID
func (s Session) SessionByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]

	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	dbResp, err := s.DB.FindOne(ctx, bson.M{"_id": sID})
	if err != nil {
		config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
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

// AutoAssignHandler asks the assignment engine to attach an available
// counselor to the session. When every counselor is busy the session is
// returned unchanged with assigned=false so the caller can retry later.
func (s Session) AutoAssignHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	if _, err := primitive.ObjectIDFromHex(sessionID); err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	session, assigned, err := s.Engine.Assign(ctx, sessionID)
	if err != nil {
		if errors.Is(err, assignment.ErrSessionClosed) {
			config.ErrorStatus("session is completed or cancelled", http.StatusConflict, w, err)
			return
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to assign session", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.AssignResponse{Session: session, Assigned: assigned})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ActivateSessionHandler lets a counselor claim a pending or waiting session.
// A session already taken by another counselor returns a conflict.
func (s Session) ActivateSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var req activateSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if req.CounselorID == "" {
		config.ErrorStatus("counselorID is required", http.StatusBadRequest, w, errors.New("missing counselorID"))
		return
	}
	if _, err := primitive.ObjectIDFromHex(req.CounselorID); err != nil {
		config.ErrorStatus("counselor ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	updated, err := s.Engine.Claim(ctx, sessionID, req.CounselorID)
	if err != nil {
		if errors.Is(err, assignment.ErrCounselorUnavailable) {
			config.ErrorStatus("counselor cannot take this session", http.StatusConflict, w, err)
			return
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			// The conditional update matched nothing: either the session does
			// not exist or someone else moved it out of pending/waiting first.
			if _, findErr := s.DB.FindOne(ctx, bson.M{"_id": sID}); findErr != nil {
				config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, findErr)
				return
			}
			config.ErrorStatus("session is no longer available", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to activate session", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(updated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// EndSessionHandler moves an active session to completed. Ending an already
// completed session returns the stored record untouched, so the first
// completedAt always wins.
func (s Session) EndSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	updated, err := s.DB.FindOneAndUpdate(ctx,
		bson.M{"_id": sID, "session.status": models.SessionStatusActive},
		bson.M{"$set": bson.M{
			"session.status":      models.SessionStatusCompleted,
			"session.completedAt": now,
			"session.updatedAt":   now,
		}},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			current, findErr := s.DB.FindOne(ctx, bson.M{"_id": sID})
			if findErr != nil {
				config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, findErr)
				return
			}
			if current.Details.Status == models.SessionStatusCompleted {
				b, marshalErr := json.Marshal(current)
				if marshalErr != nil {
					config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, marshalErr)
					return
				}
				w.WriteHeader(http.StatusOK)
				w.Write(b)
				return
			}
			config.ErrorStatus("session is not active", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to end session", http.StatusInternalServerError, w, err)
		return
	}

	if err := s.Engine.Release(ctx, updated.Details.CounselorID); err != nil {
		zap.S().Errorw("failed to release counselor", "counselorId", updated.Details.CounselorID, "error", err)
	}

	zap.S().Infow("session completed", "sessionId", updated.ID)

	b, err := json.Marshal(updated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CancelSessionHandler cancels a session that has not started yet. Active and
// completed sessions cannot be cancelled.
func (s Session) CancelSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	updated, err := s.DB.FindOneAndUpdate(ctx,
		bson.M{"_id": sID, "session.status": bson.M{"$in": []string{
			models.SessionStatusPending,
			models.SessionStatusWaiting,
		}}},
		bson.M{"$set": bson.M{
			"session.status":    models.SessionStatusCancelled,
			"session.updatedAt": now,
		}},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			current, findErr := s.DB.FindOne(ctx, bson.M{"_id": sID})
			if findErr != nil {
				config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, findErr)
				return
			}
			if current.Details.Status == models.SessionStatusCancelled {
				b, marshalErr := json.Marshal(current)
				if marshalErr != nil {
					config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, marshalErr)
					return
				}
				w.WriteHeader(http.StatusOK)
				w.Write(b)
				return
			}
			config.ErrorStatus("only pending or waiting sessions can be cancelled", http.StatusConflict, w, err)
			return
		}
		config.ErrorStatus("failed to cancel session", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("session cancelled", "sessionId", updated.ID)

	b, err := json.Marshal(updated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AddSessionNotesHandler stores the counselor's private notes on a session
func (s Session) AddSessionNotesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request body", http.StatusBadRequest, w, err)
		return
	}
	var req sessionNotesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}

	updated, err := s.DB.FindOneAndUpdate(ctx,
		bson.M{"_id": sID},
		bson.M{"$set": bson.M{
			"session.notes":     req.Notes,
			"session.updatedAt": primitive.NewDateTimeFromTime(time.Now()),
		}},
	)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
			return
		}
		config.ErrorStatus("failed to update session notes", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(updated)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
