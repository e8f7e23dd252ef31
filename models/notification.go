package models

// Notification types
const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationAlert   = "alert"
)

// Notification holds the structure for the notification collection in mongo.
// Notifications carry no read flag; deleting one is the acknowledgment.
type Notification struct {
	ID      string              `json:"_id" bson:"_id"`
	Details NotificationDetails `json:"notification" bson:"notification"`
	Version int32               `json:"__v" bson:"__v"`
}

// NotificationDetails holds the structure for the inner notification
// structure as defined in the notification collection in mongo
type NotificationDetails struct {
	RecipientID   string      `json:"recipientID" bson:"recipientID"`
	RecipientRole string      `json:"recipientRole" bson:"recipientRole"`
	SenderID      string      `json:"senderID" bson:"senderID"`
	Type          string      `json:"type" bson:"type"`
	Title         string      `json:"title" bson:"title"`
	Message       string      `json:"message" bson:"message"`
	CreatedAt     interface{} `json:"createdAt" bson:"createdAt"`
}
