package models

// Session status values. A session is created pending, may be escalated to
// waiting while it sits unclaimed, becomes active once a counselor is
// attached, and ends in one of the two terminal states.
const (
	SessionStatusPending   = "pending"
	SessionStatusWaiting   = "waiting"
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// SessionTerminal reports whether status is one of the terminal states
func SessionTerminal(status string) bool {
	return status == SessionStatusCompleted || status == SessionStatusCancelled
}

// Session holds the structure for the session collection in mongo
type Session struct {
	ID      string         `json:"_id" bson:"_id"`
	Details SessionDetails `json:"session" bson:"session"`
	Version int32          `json:"__v" bson:"__v"`
}

// SessionDetails holds the structure for the inner session structure as
// defined in the session collection in mongo
type SessionDetails struct {
	UserID      string      `json:"userID" bson:"userID"`
	CounselorID string      `json:"counselorID" bson:"counselorID"`
	Status      string      `json:"status" bson:"status"`
	PulseLevel  int         `json:"pulseLevel" bson:"pulseLevel"`
	Notes       string      `json:"notes" bson:"notes"`
	CreatedAt   interface{} `json:"createdAt" bson:"createdAt"`
	ScheduledAt interface{} `json:"scheduledAt" bson:"scheduledAt"`
	ActivatedAt interface{} `json:"activatedAt" bson:"activatedAt"`
	CompletedAt interface{} `json:"completedAt" bson:"completedAt"`
	UpdatedAt   interface{} `json:"updatedAt" bson:"updatedAt"`
}

// AssignResponse wraps a session with the advisory assignment flag returned
// by the auto-assign endpoint. Assigned is false when no counselor was free,
// in which case the session is returned unchanged.
type AssignResponse struct {
	Session  *Session `json:"session"`
	Assigned bool     `json:"assigned"`
}
