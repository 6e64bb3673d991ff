package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/push-dispatcher/models"
)

// RequestTimeout bounds every request served by the status router
const RequestTimeout = 5 * time.Second

// StatusProvider exposes the report of the most recent run
type StatusProvider interface {
	LastReport() (models.RunReport, bool)
}

// App stores what the routes need, so it can be reused
type App struct {
	Status StatusProvider
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware, TimeoutMiddleware(RequestTimeout))

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.HandleFunc("/status", a.statusHandler).Methods("GET")

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthCheckResponse{
		Alive: true,
	})
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	if a.Status == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorMessageResponse{
			Response: models.MessageError{Message: "status is only available in scheduled mode"},
		})
		return
	}

	report, ok := a.Status.LastReport()
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorMessageResponse{
			Response: models.MessageError{Message: "no run has finished yet"},
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		zap.S().Errorw("failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
