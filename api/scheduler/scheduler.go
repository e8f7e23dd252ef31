package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/api/events"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
	templates "github.com/beacon-health/counseling-api/templates/html"
)

// Scheduler handles the periodic background jobs that keep the session queue
// moving: escalating aged pending requests, expiring stale waiting sessions,
// and nudging counselors about the waiting queue.
type Scheduler struct {
	cron       *cron.Cron
	SDB        databases.SessionDatabase
	CDB        databases.CounselorDatabase
	LockDB     databases.SchedulerLockDatabase
	Events     *events.Emitter
	Config     config.Config
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	sDB databases.SessionDatabase,
	cDB databases.CounselorDatabase,
	lockDB databases.SchedulerLockDatabase,
	emitter *events.Emitter,
	conf config.Config,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		SDB:        sDB,
		CDB:        cDB,
		LockDB:     lockDB,
		Events:     emitter,
		Config:     conf,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Move aged pending sessions into the waiting queue every 5 minutes
	_, err := s.cron.AddFunc("*/5 * * * *", s.escalatePendingSessions)
	if err != nil {
		zap.S().Errorw("failed to register pending escalation job", "error", err)
	}

	// Expire waiting sessions that nobody claimed, hourly on the hour
	_, err = s.cron.AddFunc("0 * * * *", s.expireWaitingSessions)
	if err != nil {
		zap.S().Errorw("failed to register waiting expiry job", "error", err)
	}

	// Daily digest to available counselors at 8 AM UTC
	_, err = s.cron.AddFunc("0 8 * * *", s.sendWaitingDigest)
	if err != nil {
		zap.S().Errorw("failed to register waiting digest job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Session queue scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Session queue scheduler stopped")
}

// escalatePendingSessions moves pending sessions that auto-assignment never
// matched into the waiting state, where counselors can claim them directly.
func (s *Scheduler) escalatePendingSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "escalate_pending_job", s.instanceID, 5*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for pending escalation job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Pending escalation job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "escalate_pending_job", s.instanceID)

	cutoff := time.Now().Add(-time.Duration(s.Config.EscalateAfterMins) * time.Minute)
	sessions, err := s.SDB.Find(ctx, bson.M{
		"session.status":    models.SessionStatusPending,
		"session.createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	})
	if err != nil {
		zap.S().Errorw("failed to find aged pending sessions", "error", err)
		return
	}

	escalated := 0
	now := primitive.NewDateTimeFromTime(time.Now())
	for _, session := range sessions {
		sID, idErr := primitive.ObjectIDFromHex(session.ID)
		if idErr != nil {
			zap.S().Errorw("skipping session with malformed ID", "sessionId", session.ID)
			continue
		}
		// Conditional on status so a session claimed between the find and
		// this update is left alone
		_, err := s.SDB.UpdateOne(ctx,
			bson.M{"_id": sID, "session.status": models.SessionStatusPending},
			bson.M{"$set": bson.M{
				"session.status":    models.SessionStatusWaiting,
				"session.updatedAt": now,
			}},
		)
		if err != nil {
			zap.S().Errorw("failed to escalate pending session", "sessionId", session.ID, "error", err)
			continue
		}
		escalated++
	}

	zap.S().Infow("Pending escalation complete",
		"instance", s.instanceID,
		"escalated", escalated,
	)
}

// expireWaitingSessions cancels waiting sessions that outlived the queue TTL
// and tells the requester to try again.
func (s *Scheduler) expireWaitingSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "expire_waiting_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for waiting expiry job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Waiting expiry job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "expire_waiting_job", s.instanceID)

	cutoff := time.Now().Add(-time.Duration(s.Config.WaitingTTLHours) * time.Hour)
	sessions, err := s.SDB.Find(ctx, bson.M{
		"session.status":    models.SessionStatusWaiting,
		"session.createdAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	})
	if err != nil {
		zap.S().Errorw("failed to find stale waiting sessions", "error", err)
		return
	}

	expired := 0
	for _, session := range sessions {
		sID, idErr := primitive.ObjectIDFromHex(session.ID)
		if idErr != nil {
			zap.S().Errorw("skipping session with malformed ID", "sessionId", session.ID)
			continue
		}
		now := primitive.NewDateTimeFromTime(time.Now())
		updated, err := s.SDB.FindOneAndUpdate(ctx,
			bson.M{"_id": sID, "session.status": models.SessionStatusWaiting},
			bson.M{"$set": bson.M{
				"session.status":    models.SessionStatusCancelled,
				"session.updatedAt": now,
			}},
		)
		if err != nil {
			// claimed or cancelled since the find; nothing to do
			continue
		}
		if s.Events != nil {
			s.Events.SessionExpired(ctx, *updated)
		}
		expired++
	}

	zap.S().Infow("Waiting expiry complete",
		"instance", s.instanceID,
		"expired", expired,
	)
}

// sendWaitingDigest emails every available counselor a count of sessions
// still sitting in the waiting queue.
func (s *Scheduler) sendWaitingDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, "waiting_digest_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for waiting digest job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Waiting digest job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "waiting_digest_job", s.instanceID)

	waiting, err := s.SDB.CountDocuments(ctx, bson.M{"session.status": models.SessionStatusWaiting})
	if err != nil {
		zap.S().Errorw("failed to count waiting sessions", "error", err)
		return
	}
	if waiting == 0 {
		zap.S().Debug("No waiting sessions, skipping digest")
		return
	}

	counselors, err := s.CDB.Find(ctx, bson.M{"counselor.available": true})
	if err != nil {
		zap.S().Errorw("failed to find available counselors", "error", err)
		return
	}

	sent := 0
	for _, counselor := range counselors {
		if counselor.Details.Email == "" {
			continue
		}
		subject := "Sessions Waiting for a Counselor - Beacon Health"
		htmlContent := templates.RenderWaitingDigestEmail(counselor.Details.Name, int(waiting))
		plainText := fmt.Sprintf("There are %d sessions waiting for a counselor. Please open your dashboard and claim a session if you have capacity.", waiting)
		if err := s.sendEmail(counselor.Details.Email, counselor.Details.Name, subject, htmlContent, plainText); err != nil {
			zap.S().Errorw("failed to send waiting digest email", "error", err, "counselorId", counselor.ID)
			continue
		}
		sent++
	}

	zap.S().Infow("Waiting digest complete",
		"instance", s.instanceID,
		"waitingSessions", waiting,
		"emailsSent", sent,
	)
}

func (s *Scheduler) sendEmail(toEmail, toName, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("Beacon Health", "no-reply@beaconhealth.app")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
