package models

// Counselor holds the structure for the counselor collection in mongo
type Counselor struct {
	ID      string           `json:"_id" bson:"_id"`
	Details CounselorDetails `json:"counselor" bson:"counselor"`
	Version int32            `json:"__v" bson:"__v"`
}

// CounselorDetails holds the structure for the inner counselor structure as
// defined in the counselor collection in mongo. ActiveSessions is maintained
// by the assignment engine and the end/cancel transitions; it drives the
// fewest-active tie-break during auto-assignment.
type CounselorDetails struct {
	Name           string      `json:"name" bson:"name"`
	Email          string      `json:"email" bson:"email"`
	Password       string      `json:"password,omitempty" bson:"password"`
	Specialty      string      `json:"specialty" bson:"specialty"`
	Available      bool        `json:"available" bson:"available"`
	ActiveSessions int         `json:"activeSessions" bson:"activeSessions"`
	LastActiveAt   interface{} `json:"lastActiveAt" bson:"lastActiveAt"`
	CreatedAt      interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt      interface{} `json:"updatedAt" bson:"updatedAt"`
}
