package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/api/events"
	"github.com/beacon-health/counseling-api/api/handlers"
	"github.com/beacon-health/counseling-api/api/scheduler"
	"github.com/beacon-health/counseling-api/config"
	"github.com/beacon-health/counseling-api/databases"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()
	a.Hub = events.NewHub()

	if err := a.Initialize(); err != nil { //initialize database and router
		log.Fatal(err)
	}

	dbHelper := a.DBHelper()
	emitter := events.NewEmitter(databases.NewNotificationDatabase(dbHelper), a.Hub)
	s := scheduler.NewScheduler(
		databases.NewSessionDatabase(dbHelper),
		databases.NewCounselorDatabase(dbHelper),
		databases.NewSchedulerLockDatabase(dbHelper),
		emitter,
		a.Config,
	)
	s.Start()
	defer s.Stop()

	port := os.Getenv("PORT")
	baseURL := os.Getenv("BASE_URL")
	zap.S().Infow("counseling-api is up and running",
		"port", port,
		"url", baseURL,
	)
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%v", port), a.Router))
}
