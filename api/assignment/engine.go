package assignment

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/api/events"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// ErrSessionClosed is returned when assignment is requested for a session in
// a terminal state
var ErrSessionClosed = errors.New("session is completed or cancelled")

// ErrCounselorUnavailable is returned when the named counselor does not
// exist, is marked unavailable, or already holds the maximum number of
// concurrent active sessions
var ErrCounselorUnavailable = errors.New("counselor is unavailable or at capacity")

// Engine selects an available counselor for a pending or waiting session and
// performs the pending/waiting -> active transition. The transition itself is
// a conditional update on the session store, so two racing assigns resolve to
// a single winner; the loser observes the winner's assignment and returns it.
type Engine struct {
	SDB               databases.SessionDatabase
	CDB               databases.CounselorDatabase
	Events            *events.Emitter
	MaxActiveSessions int
}

// NewEngine creates an assignment engine. maxActiveSessions caps how many
// concurrent active sessions a counselor may hold.
func NewEngine(sdb databases.SessionDatabase, cdb databases.CounselorDatabase, emitter *events.Emitter, maxActiveSessions int) *Engine {
	return &Engine{
		SDB:               sdb,
		CDB:               cdb,
		Events:            emitter,
		MaxActiveSessions: maxActiveSessions,
	}
}

// Assign attaches an available counselor to the session. The returned bool
// reports whether the session holds an assignment after the call: true for a
// fresh or pre-existing assignment, false when no counselor was free (the
// session is returned unchanged). Assign is idempotent: repeating it on an
// already-active session returns the existing assignment.
func (e *Engine) Assign(ctx context.Context, sessionID string) (*models.Session, bool, error) {
	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, false, err
	}

	session, err := e.SDB.FindOne(ctx, bson.M{"_id": sID})
	if err != nil {
		return nil, false, err
	}

	switch session.Details.Status {
	case models.SessionStatusActive:
		return session, true, nil
	case models.SessionStatusCompleted, models.SessionStatusCancelled:
		return nil, false, ErrSessionClosed
	}

	counselors, err := e.CDB.Find(ctx, bson.M{
		"counselor.available":      true,
		"counselor.activeSessions": bson.M{"$lt": e.MaxActiveSessions},
	})
	if err != nil {
		return nil, false, err
	}

	pick := Pick(counselors)
	if pick == nil {
		zap.S().Infow("no counselor available", "sessionId", session.ID)
		return session, false, nil
	}

	updated, err := e.claim(ctx, sID, pick.ID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Lost the race. If the winner activated the session, hand back
			// their assignment; anything else is a real conflict.
			current, findErr := e.SDB.FindOne(ctx, bson.M{"_id": sID})
			if findErr != nil {
				return nil, false, findErr
			}
			if current.Details.Status == models.SessionStatusActive {
				return current, true, nil
			}
			return nil, false, ErrSessionClosed
		}
		return nil, false, err
	}

	if err := e.bookCounselor(ctx, pick.ID); err != nil {
		zap.S().Errorw("failed to update counselor booking", "counselorId", pick.ID, "error", err)
	}

	if e.Events != nil {
		e.Events.SessionAssigned(ctx, updated)
	}

	zap.S().Infow("session assigned",
		"sessionId", updated.ID,
		"counselorId", pick.ID,
	)
	return updated, true, nil
}

// Claim performs the counselor-initiated activate: the named counselor takes
// the session if and only if it is still unclaimed and the counselor has
// capacity. The counselor is booked first through the same cap-gated update
// Assign uses, so a counselor at the concurrent-session cap gets
// ErrCounselorUnavailable instead of an over-booked session.
// mongo.ErrNoDocuments surfaces when another counselor won the race; the
// booking is rolled back in that case.
func (e *Engine) Claim(ctx context.Context, sessionID, counselorID string) (*models.Session, error) {
	sID, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return nil, err
	}

	if err := e.bookCounselor(ctx, counselorID); err != nil {
		return nil, err
	}

	updated, err := e.claim(ctx, sID, counselorID)
	if err != nil {
		if rErr := e.Release(ctx, counselorID); rErr != nil {
			zap.S().Errorw("failed to roll back counselor booking", "counselorId", counselorID, "error", rErr)
		}
		return nil, err
	}

	if e.Events != nil {
		e.Events.SessionAssigned(ctx, updated)
	}
	return updated, nil
}

func (e *Engine) claim(ctx context.Context, sID primitive.ObjectID, counselorID string) (*models.Session, error) {
	now := primitive.NewDateTimeFromTime(time.Now())
	filter := bson.M{
		"_id": sID,
		"session.status": bson.M{"$in": []string{
			models.SessionStatusPending,
			models.SessionStatusWaiting,
		}},
	}
	update := bson.M{
		"$set": bson.M{
			"session.counselorID": counselorID,
			"session.status":      models.SessionStatusActive,
			"session.activatedAt": now,
			"session.updatedAt":   now,
		},
	}
	return e.SDB.FindOneAndUpdate(ctx, filter, update)
}

// bookCounselor increments the counselor's active-session count, gated on the
// same eligibility Assign filters on. A counselor that is missing, marked
// unavailable or already at the cap matches nothing and the booking is
// refused.
func (e *Engine) bookCounselor(ctx context.Context, counselorID string) error {
	cID, err := primitive.ObjectIDFromHex(counselorID)
	if err != nil {
		return err
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	res, err := e.CDB.UpdateOne(ctx, bson.M{
		"_id":                      cID,
		"counselor.available":      true,
		"counselor.activeSessions": bson.M{"$lt": e.MaxActiveSessions},
	}, bson.M{
		"$inc": bson.M{"counselor.activeSessions": 1},
		"$set": bson.M{
			"counselor.lastActiveAt": now,
			"counselor.updatedAt":    now,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrCounselorUnavailable
	}
	return nil
}

// Release decrements a counselor's active-session count after an end or
// cancel transition. The floor at zero guards against double releases.
func (e *Engine) Release(ctx context.Context, counselorID string) error {
	if counselorID == "" {
		return nil
	}
	cID, err := primitive.ObjectIDFromHex(counselorID)
	if err != nil {
		return err
	}
	now := primitive.NewDateTimeFromTime(time.Now())
	_, err = e.CDB.UpdateOne(ctx, bson.M{
		"_id":                      cID,
		"counselor.activeSessions": bson.M{"$gt": 0},
	}, bson.M{
		"$inc": bson.M{"counselor.activeSessions": -1},
		"$set": bson.M{
			"counselor.lastActiveAt": now,
			"counselor.updatedAt":    now,
		},
	})
	return err
}

// Pick chooses the counselor with the fewest active sessions; ties go to the
// longest-idle counselor (earliest lastActiveAt, never-active first), then to
// the lowest ID so the choice is fully deterministic. Returns nil when the
// slice is empty.
func Pick(counselors []models.Counselor) *models.Counselor {
	if len(counselors) == 0 {
		return nil
	}

	sorted := make([]models.Counselor, len(counselors))
	copy(sorted, counselors)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Details.ActiveSessions != b.Details.ActiveSessions {
			return a.Details.ActiveSessions < b.Details.ActiveSessions
		}
		at, bt := asTime(a.Details.LastActiveAt), asTime(b.Details.LastActiveAt)
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.ID < b.ID
	})
	return &sorted[0]
}

func asTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}
		}
		return parsed
	default:
		return time.Time{}
	}
}
