package models

// CheckIn holds the structure for the checkin collection in mongo.
// Check-ins are never mutated or deleted; they accumulate as a mood
// time series per user.
type CheckIn struct {
	ID      string         `json:"_id" bson:"_id"`
	Details CheckInDetails `json:"checkin" bson:"checkin"`
	Version int32          `json:"__v" bson:"__v"`
}

// CheckInDetails holds the structure for the inner checkin structure as
// defined in the checkin collection in mongo
type CheckInDetails struct {
	UserID    string      `json:"userID" bson:"userID"`
	Mood      int         `json:"mood" bson:"mood"`
	Note      string      `json:"note" bson:"note"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
}
