package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// Notification exported for testing purposes
type Notification struct {
	DB databases.NotificationDatabase
}

// NotificationHandler returns the pending notifications for a recipient,
// newest first. A notification stays in the list until the recipient deletes
// it, which is how delivery is acknowledged.
func (n Notification) NotificationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	recipientID := r.URL.Query().Get("recipient_id")
	if recipientID == "" {
		config.ErrorStatus("recipient_id is required", http.StatusBadRequest, w, errors.New("missing recipient_id"))
		return
	}

	dbResp, err := n.DB.Find(ctx,
		bson.M{"notification.recipientID": recipientID},
		options.Find().SetSort(bson.M{"notification.createdAt": -1}),
	)
	if err != nil {
		config.ErrorStatus("failed to get notifications", http.StatusNotFound, w, err)
		return
	}
	// Because the frontend requires that the length of the notifications must
	// be greater than 0 to parse the response properly
	if dbResp == nil {
		dbResp = []models.Notification{}
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteNotificationHandler acknowledges a notification by removing it
func (n Notification) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	notificationID := mux.Vars(r)["notification_id"]
	nID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		config.ErrorStatus("notification ID is not a valid ObjectID", http.StatusBadRequest, w, err)
		return
	}

	if err := n.DB.DeleteOne(ctx, bson.M{"_id": nID}); err != nil {
		config.ErrorStatus("failed to delete notification", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
