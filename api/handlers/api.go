package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/api"
	"github.com/beacon-health/counseling-api/api/assignment"
	"github.com/beacon-health/counseling-api/api/events"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	DB       databases.CollectionHelper
	Config   config.Config
	Hub      *events.Hub
	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := api.MiddlewareDB{
		UDB: databases.NewUserDatabase(a.dbHelper),
		CDB: databases.NewCounselorDatabase(a.dbHelper),
	}
	m.SetupGoGuardian()

	r := mux.NewRouter()

	if a.Hub == nil {
		a.Hub = events.NewHub()
	}
	emitter := events.NewEmitter(databases.NewNotificationDatabase(a.dbHelper), a.Hub)
	engine := assignment.NewEngine(
		databases.NewSessionDatabase(a.dbHelper),
		databases.NewCounselorDatabase(a.dbHelper),
		emitter,
		a.Config.MaxActiveSessions,
	)

	s := Session{DB: databases.NewSessionDatabase(a.dbHelper), Engine: engine}
	msg := Message{DB: databases.NewMessageDatabase(a.dbHelper), SDB: databases.NewSessionDatabase(a.dbHelper), Events: emitter}
	ci := CheckIn{DB: databases.NewCheckInDatabase(a.dbHelper)}
	fb := Feedback{DB: databases.NewFeedbackDatabase(a.dbHelper), SDB: databases.NewSessionDatabase(a.dbHelper)}
	n := Notification{DB: databases.NewNotificationDatabase(a.dbHelper)}
	u := User{DB: databases.NewUserDatabase(a.dbHelper)}
	c := Counselor{DB: databases.NewCounselorDatabase(a.dbHelper)}
	ai := AI{}

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.HandleFunc("/ws/notifications", a.Hub.ServeWS)

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")

	apiCreate.Handle("/sessions", api.Middleware(http.HandlerFunc(s.CreateSessionHandler))).Methods("POST")
	apiCreate.Handle("/sessions", api.Middleware(http.HandlerFunc(s.SessionHandler))).Methods("GET")
	apiCreate.Handle("/sessions/auto-assign/{session_id}", api.Middleware(http.HandlerFunc(s.AutoAssignHandler))).Methods("POST")
	apiCreate.Handle("/sessions/{session_id}", api.Middleware(http.HandlerFunc(s.SessionByIDHandler))).Methods("GET")
	apiCreate.Handle("/sessions/{session_id}/activate", api.Middleware(http.HandlerFunc(s.ActivateSessionHandler))).Methods("POST")
	apiCreate.Handle("/sessions/{session_id}/end", api.Middleware(http.HandlerFunc(s.EndSessionHandler))).Methods("POST")
	apiCreate.Handle("/sessions/{session_id}/cancel", api.Middleware(http.HandlerFunc(s.CancelSessionHandler))).Methods("POST")
	apiCreate.Handle("/sessions/{session_id}/notes", api.Middleware(http.HandlerFunc(s.AddSessionNotesHandler))).Methods("POST")
	apiCreate.Handle("/sessions/{session_id}/messages", api.Middleware(http.HandlerFunc(msg.MessagesBySessionIDHandler))).Methods("GET")
	apiCreate.Handle("/sessions/{session_id}/messages", api.Middleware(http.HandlerFunc(msg.CreateMessageHandler))).Methods("POST")

	apiCreate.Handle("/checkins", api.Middleware(http.HandlerFunc(ci.CreateCheckInHandler))).Methods("POST")
	apiCreate.Handle("/checkins/user/{user_id}", api.Middleware(http.HandlerFunc(ci.CheckInsByUserIDHandler))).Methods("GET")

	apiCreate.Handle("/feedback", api.Middleware(http.HandlerFunc(fb.SubmitFeedbackHandler))).Methods("POST")
	apiCreate.Handle("/feedback/session/{session_id}", api.Middleware(http.HandlerFunc(fb.FeedbackBySessionIDHandler))).Methods("GET")

	apiCreate.Handle("/notifications", api.Middleware(http.HandlerFunc(n.NotificationHandler))).Methods("GET")
	apiCreate.Handle("/notifications/{notification_id}", api.Middleware(http.HandlerFunc(n.DeleteNotificationHandler))).Methods("DELETE")

	apiCreate.Handle("/ai/chat", api.Middleware(http.HandlerFunc(ai.ChatHandler))).Methods("POST")

	apiCreate.Handle("/users", http.HandlerFunc(u.CreateUserHandler)).Methods("POST")
	apiCreate.Handle("/users", api.Middleware(http.HandlerFunc(u.UserHandler))).Methods("GET")
	apiCreate.Handle("/users/{user_id}", api.Middleware(http.HandlerFunc(u.UserByIDHandler))).Methods("GET")
	apiCreate.Handle("/users/{user_id}", api.Middleware(http.HandlerFunc(u.UpdateUserByIDHandler))).Methods("PUT")
	apiCreate.Handle("/users/{user_id}", api.Middleware(http.HandlerFunc(u.DeleteUserByIDHandler))).Methods("DELETE")

	apiCreate.Handle("/counselors", api.Middleware(http.HandlerFunc(c.CreateCounselorHandler))).Methods("POST")
	apiCreate.Handle("/counselors", api.Middleware(http.HandlerFunc(c.CounselorHandler))).Methods("GET")
	apiCreate.Handle("/counselors/{counselor_id}", api.Middleware(http.HandlerFunc(c.CounselorByIDHandler))).Methods("GET")
	apiCreate.Handle("/counselors/{counselor_id}", api.Middleware(http.HandlerFunc(c.UpdateCounselorByIDHandler))).Methods("PUT")
	apiCreate.Handle("/counselors/{counselor_id}", api.Middleware(http.HandlerFunc(c.DeleteCounselorByIDHandler))).Methods("DELETE")

	r.Use(api.TimeoutMiddleware(30 * time.Second))

	return r
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect()
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("counseling-api has connected to the database")

	// initialize api router
	a.initializeRoutes()
	return nil

}

// DBHelper exposes the database helper so main can wire the scheduler against
// the same connection
func (a *App) DBHelper() databases.DatabaseHelper {
	return a.dbHelper
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}
