package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/trailkeeper/trailkeeper/internal/history"
	"github.com/trailkeeper/trailkeeper/internal/server"
)

const maxReadingBytes = 1 << 16

// APIResponse is the envelope for errors and write acknowledgements.
type APIResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

// IdentityResponse is returned by GET /api/v1/identity.
type IdentityResponse struct {
	DeviceID string `json:"device_id"`
	Source   string `json:"source"`
}

// Registrar exposes the tracker over the local HTTP API.
type Registrar struct {
	tracker *Tracker
	now     func() time.Time
}

func NewRegistrar(tracker *Tracker) *Registrar {
	return &Registrar{tracker: tracker, now: time.Now}
}

func (tr *Registrar) RegisterRoutes(router server.Router) {
	apiGroup := router.Group("/api/v1")
	apiGroup.HandleFunc("GET /identity", tr.GetIdentity)
	apiGroup.HandleFunc("GET /trail", tr.GetTrail)
	apiGroup.HandleFunc("POST /trail", tr.PostReading)
}

func (tr *Registrar) GetIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := tr.tracker.Identity()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "device identity not resolved")
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{DeviceID: id.ID, Source: string(id.Source)})
}

func (tr *Registrar) GetTrail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tr.tracker.Trail())
}

func (tr *Registrar) PostReading(w http.ResponseWriter, r *http.Request) {
	var entry history.Entry
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReadingBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entry); err != nil {
		tr.tracker.Reject(r.RemoteAddr, "malformed body")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid reading: %v", err))
		return
	}

	if err := ValidateReading(entry); err != nil {
		tr.tracker.Reject(r.RemoteAddr, err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if entry.Time.IsZero() {
		entry.Time = tr.now().UTC()
	}

	tr.tracker.Record(entry)
	writeJSON(w, http.StatusCreated, APIResponse{
		Success:    true,
		Message:    "reading recorded",
		StatusCode: http.StatusCreated,
	})
}

// ValidateReading checks that a reading is a plausible WGS84 position.
func ValidateReading(e history.Entry) error {
	for name, v := range map[string]float64{
		"latitude":  e.Latitude,
		"longitude": e.Longitude,
		"altitude":  e.Altitude,
		"accuracy":  e.Accuracy,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be a finite number", name)
		}
	}

	switch {
	case e.Latitude < -90 || e.Latitude > 90:
		return errors.New("latitude must be within [-90, 90]")
	case e.Longitude < -180 || e.Longitude > 180:
		return errors.New("longitude must be within [-180, 180]")
	case e.Accuracy < 0:
		return errors.New("accuracy must not be negative")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Message: msg, StatusCode: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
