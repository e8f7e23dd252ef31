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
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/api/events"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// Message exported for testing purposes
type Message struct {
	DB     databases.MessageDatabase
	SDB    databases.SessionDatabase
	Events *events.Emitter
}

type createMessageRequest struct {
	SenderID   string `json:"senderID"`
	SenderRole string `json:"senderRole"`
	Content    string `json:"content"`
}

// MessagesBySessionIDHandler returns the session transcript oldest-first.
// When the reader_role query param is set, messages from the counterpart are
// flagged read before the transcript is fetched, so the returned copy already
// reflects the receipt.
func (m Message) MessagesBySessionIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sessionID := mux.Vars(r)["session_id"]
	if _, err := primitive.ObjectIDFromHex(sessionID); err != nil {
		config.ErrorStatus("session ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	readerRole := r.URL.Query().Get("reader_role")
	if readerRole == models.SenderRoleUser || readerRole == models.SenderRoleCounselor {
		counterpart := models.SenderRoleCounselor
		if readerRole == models.SenderRoleCounselor {
			counterpart = models.SenderRoleUser
		}
		_, err := m.DB.UpdateMany(ctx,
			bson.M{
				"message.sessionID":  sessionID,
				"message.senderRole": counterpart,
				"message.read":       false,
			},
			bson.M{"$set": bson.M{"message.read": true}},
		)
		if err != nil {
			zap.S().Errorw("failed to mark messages read", "sessionId", sessionID, "error", err)
		}
	}

	dbResp, err := m.DB.Find(ctx,
		bson.M{"message.sessionID": sessionID},
		options.Find().SetSort(bson.M{"message.createdAt": 1}),
	)
	if err != nil {
		config.ErrorStatus("failed to get messages by session ID", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the messages must be
	// greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.Message{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// CreateMessageHandler appends a message to the session transcript. Completed
// and cancelled sessions no longer accept messages.
func (m Message) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
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
	var req createMessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		config.ErrorStatus("failed to unmarshal request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Content == "" {
		config.ErrorStatus("content is required", http.StatusBadRequest, w, errors.New("missing content"))
		return
	}
	if req.SenderRole != models.SenderRoleUser && req.SenderRole != models.SenderRoleCounselor {
		config.ErrorStatus("senderRole must be user or counselor", http.StatusBadRequest, w, errors.New("invalid senderRole"))
		return
	}

	session, err := m.SDB.FindOne(ctx, bson.M{"_id": sID})
	if err != nil {
		config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
		return
	}
	if models.SessionTerminal(session.Details.Status) {
		config.ErrorStatus("session is completed or cancelled", http.StatusConflict, w, errors.New("session closed"))
		return
	}

	message := models.Message{
		ID: primitive.NewObjectID().Hex(),
		Details: models.MessageDetails{
			SessionID:  sessionID,
			SenderID:   req.SenderID,
			SenderRole: req.SenderRole,
			Content:    req.Content,
			Read:       false,
			CreatedAt:  primitive.NewDateTimeFromTime(time.Now()),
		},
	}

	oID, _ := primitive.ObjectIDFromHex(message.ID)
	doc := bson.M{
		"_id":     oID,
		"message": message.Details,
		"__v":     message.Version,
	}
	if _, err := m.DB.InsertOne(ctx, doc); err != nil {
		config.ErrorStatus("failed to create message", http.StatusInternalServerError, w, err)
		return
	}

	if m.Events != nil {
		recipientID := session.Details.CounselorID
		recipientRole := models.SenderRoleCounselor
		if req.SenderRole == models.SenderRoleCounselor {
			recipientID = session.Details.UserID
			recipientRole = models.SenderRoleUser
		}
		m.Events.MessageReceived(ctx, message.Details, recipientID, recipientRole)
	}

	b, err := json.Marshal(message)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}
