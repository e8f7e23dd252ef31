package models

// Message sender roles
const (
	SenderRoleUser      = "user"
	SenderRoleCounselor = "counselor"
)

// Message holds the structure for the message collection in mongo.
// Messages are immutable once created and are only ever appended.
type Message struct {
	ID      string         `json:"_id" bson:"_id"`
	Details MessageDetails `json:"message" bson:"message"`
	Version int32          `json:"__v" bson:"__v"`
}

// MessageDetails holds the structure for the inner message structure as
// defined in the message collection in mongo
type MessageDetails struct {
	SessionID  string      `json:"sessionID" bson:"sessionID"`
	SenderID   string      `json:"senderID" bson:"senderID"`
	SenderRole string      `json:"senderRole" bson:"senderRole"`
	Content    string      `json:"content" bson:"content"`
	Read       bool        `json:"read" bson:"read"`
	CreatedAt  interface{} `json:"createdAt" bson:"createdAt"`
}
