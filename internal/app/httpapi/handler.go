// Package httpapi exposes the gacha REST API.
package httpapi

import (
	"net/http"

	app "github.com/garagemint/garagemint/internal/app"
	"github.com/garagemint/garagemint/internal/errors"
	"github.com/garagemint/garagemint/internal/httputil"
	"github.com/garagemint/garagemint/internal/metrics"
	"github.com/garagemint/garagemint/internal/middleware"
)

// handler bundles the HTTP endpoints for the gacha service.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the gacha REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/gacha/boxes", h.boxes)
	mux.HandleFunc("/gacha/open", h.open)
	mux.HandleFunc("/gacha/cars", h.cars)
	mux.HandleFunc("/gacha/profile", h.profile)
	mux.HandleFunc("/healthz", h.health)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// openRequest is the POST /gacha/open payload.
type openRequest struct {
	BoxType string `json:"box_type"`
}

func (h *handler) open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.Unauthorized(w, "")
		return
	}

	var payload openRequest
	if err := httputil.DecodeJSONBody(w, r, &payload); err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	if payload.BoxType == "" {
		httputil.WriteServiceError(w, r, errors.InvalidRequest("box_type is required"))
		return
	}

	result, err := h.app.Gacha.OpenBox(r.Context(), userID, payload.BoxType)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) boxes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	views, err := h.app.Gacha.ListBoxes(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"boxes": views})
}

func (h *handler) cars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.Unauthorized(w, "")
		return
	}

	cars, err := h.app.Gacha.ListCars(r.Context(), userID)
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"cars": cars})
}

// profile provisions the caller's player record from the verified token.
func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		httputil.Unauthorized(w, "")
		return
	}

	u, err := h.app.Gacha.EnsureUser(r.Context(), userID, middleware.GetWallet(r.Context()))
	if err != nil {
		httputil.WriteServiceError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
