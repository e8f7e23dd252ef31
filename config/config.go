package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/beacon-health/counseling-api/models"
)

// Config holds the project config values
type Config struct {
	URL               string
	DatabaseName      string
	BaseURL           string
	Port              string
	MaxActiveSessions int
	EscalateAfterMins int
	WaitingTTLHours   int
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:               os.Getenv("DB_URI"),
		DatabaseName:      os.Getenv("DB_NAME"),
		BaseURL:           os.Getenv("BASE_URL"),
		Port:              os.Getenv("PORT"),
		MaxActiveSessions: envInt("MAX_ACTIVE_SESSIONS", 3),
		EscalateAfterMins: envInt("PENDING_ESCALATE_MINUTES", 15),
		WaitingTTLHours:   envInt("WAITING_SESSION_TTL_HOURS", 48),
	}

}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zap.S().Warnf("invalid value for %v, using default of %v, err: %v", key, fallback, err)
		return fallback
	}
	return n
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: err.Error()}})
	w.WriteHeader(httpStatusCode)
	w.Write(b)
}
