package models

// Feedback holds the structure for the feedback collection in mongo.
// There is at most one feedback document per (user, session) pair; a
// resubmission revises the existing document.
type Feedback struct {
	ID      string          `json:"_id" bson:"_id"`
	Details FeedbackDetails `json:"feedback" bson:"feedback"`
	Version int32           `json:"__v" bson:"__v"`
}

// FeedbackDetails holds the structure for the inner feedback structure as
// defined in the feedback collection in mongo
type FeedbackDetails struct {
	SessionID string      `json:"sessionID" bson:"sessionID"`
	UserID    string      `json:"userID" bson:"userID"`
	Rating    int         `json:"rating" bson:"rating"`
	Comment   string      `json:"comment" bson:"comment"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt interface{} `json:"updatedAt" bson:"updatedAt"`
}
