package events

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// Emitter writes notification records for server-side events and mirrors
// them to the websocket hub. Recipients acknowledge by deleting the record.
type Emitter struct {
	NDB databases.NotificationDatabase
	Hub *Hub
}

// NewEmitter creates an emitter backed by the given notification store
func NewEmitter(ndb databases.NotificationDatabase, hub *Hub) *Emitter {
	return &Emitter{NDB: ndb, Hub: hub}
}

// SessionAssigned notifies both parties that a counselor was attached
func (e *Emitter) SessionAssigned(ctx context.Context, session *models.Session) {
	e.emit(ctx, models.NotificationDetails{
		RecipientID:   session.Details.UserID,
		RecipientRole: models.SenderRoleUser,
		SenderID:      session.Details.CounselorID,
		Type:          models.NotificationSuccess,
		Title:         "Counselor assigned",
		Message:       "A counselor has joined your session.",
	})
	e.emit(ctx, models.NotificationDetails{
		RecipientID:   session.Details.CounselorID,
		RecipientRole: models.SenderRoleCounselor,
		SenderID:      session.Details.UserID,
		Type:          models.NotificationInfo,
		Title:         "New session assigned",
		Message:       fmt.Sprintf("You have been assigned session %s.", session.ID),
	})
}

// MessageReceived notifies the counterpart of a new chat message
func (e *Emitter) MessageReceived(ctx context.Context, message models.MessageDetails, recipientID, recipientRole string) {
	if recipientID == "" {
		return
	}
	e.emit(ctx, models.NotificationDetails{
		RecipientID:   recipientID,
		RecipientRole: recipientRole,
		SenderID:      message.SenderID,
		Type:          models.NotificationInfo,
		Title:         "New message",
		Message:       "You have a new message in your session.",
	})
}

// SessionExpired notifies the user that an unclaimed session was cancelled
func (e *Emitter) SessionExpired(ctx context.Context, session models.Session) {
	e.emit(ctx, models.NotificationDetails{
		RecipientID:   session.Details.UserID,
		RecipientRole: models.SenderRoleUser,
		Type:          models.NotificationAlert,
		Title:         "Session expired",
		Message:       "Your session request expired before a counselor was available. Please request a new session.",
	})
}

func (e *Emitter) emit(ctx context.Context, details models.NotificationDetails) {
	details.CreatedAt = primitive.NewDateTimeFromTime(time.Now())

	doc := bson.M{
		"_id":          primitive.NewObjectID(),
		"notification": details,
		"__v":          0,
	}

	if _, err := e.NDB.InsertOne(ctx, doc); err != nil {
		zap.S().Errorw("failed to store notification", "recipientId", details.RecipientID, "error", err)
		return
	}

	if e.Hub != nil {
		e.Hub.Send(details.RecipientID, details)
	}
}
