// Package server exposes the dashboard as a JSON API.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"sales-dashboard/internal/interfaces"
	"sales-dashboard/internal/logger"
	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/sheets"
	"sales-dashboard/internal/types"
)

const (
	dateLayout  = "2006-01-02"
	stateCookie = "bling_oauth_state"
)

// SettingsStore reads and writes the margin sheet URL
type SettingsStore interface {
	SheetURL() string
	SetSheetURL(u string) error
}

// Authorizer runs the upstream OAuth authorization-code flow
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	Connected() bool
}

// Server routes HTTP requests to the dashboard. Auth may be nil when the
// upstream token is supplied out of band.
type Server struct {
	dashboard interfaces.Dashboard
	settings  SettingsStore
	auth      Authorizer
	loc       *time.Location
	router    chi.Router
}

func New(d interfaces.Dashboard, settings SettingsStore, auth Authorizer, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{dashboard: d, settings: settings, auth: auth, loc: loc}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Get("/auth/login", s.login)
	r.Get("/auth/callback", s.callback)

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.getDashboard)
		r.Get("/orders/last-raw", s.lastRaw)
		r.Get("/config/sheet", s.getSheet)
		r.Put("/config/sheet", s.putSheet)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.auth != nil {
		body["connected"] = s.auth.Connected()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	if s.auth != nil && !s.auth.Connected() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not connected to Bling",
			"login": "/auth/login",
		})
		return
	}

	snap, err := s.dashboard.Snapshot(r.Context(), s.parseRequest(r))
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Dashboard request failed", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// parseRequest reads the dashboard query. Missing or unparseable dates
// select the default range.
func (s *Server) parseRequest(r *http.Request) types.DashboardRequest {
	q := r.URL.Query()
	req := types.DashboardRequest{
		Status: strings.TrimSpace(q.Get("situacao")),
		Sort: types.SortToggles{
			ProductsDay:   types.ParseSortMode(q.Get("psd")),
			ProductsMonth: types.ParseSortMode(q.Get("psm")),
			Statuses:      types.ParseSortMode(q.Get("pss")),
			Vendors:       types.ParseSortMode(q.Get("psv")),
		},
		WithMargins: q.Get("buscar_analise") == "1",
		Force:       q.Get("refresh") == "force",
	}

	from, errFrom := time.ParseInLocation(dateLayout, q.Get("data_ini"), s.loc)
	to, errTo := time.ParseInLocation(dateLayout, q.Get("data_fim"), s.loc)
	if errFrom == nil && errTo == nil {
		req.Range = types.NewDateRange(from, to)
	}
	return req
}

func (s *Server) lastRaw(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.dashboard.LastRaw(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no order loaded yet"})
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

type sheetBody struct {
	URL string `json:"url"`
}

func (s *Server) getSheet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sheetBody{URL: s.settings.SheetURL()})
}

func (s *Server) putSheet(w http.ResponseWriter, r *http.Request) {
	var body sheetBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	body.URL = strings.TrimSpace(body.URL)
	if body.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}
	if _, err := sheets.ExportURL(body.URL); errors.Is(err, sheets.ErrInvalidURL) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.settings.SetSheetURL(body.URL); err != nil {
		logger.ErrorWithErr(r.Context(), "Failed to save sheet URL", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	logger.Info(r.Context(), "Margin sheet URL saved")
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "oauth not configured"})
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.auth.AuthURL(state), http.StatusFound)
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "oauth not configured"})
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "oauth error: " + e})
		return
	}
	code := q.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing code"})
		return
	}
	if c, err := r.Cookie(stateCookie); err != nil || c.Value != q.Get("state") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "state mismatch"})
		return
	}

	if err := s.auth.Exchange(r.Context(), code); err != nil {
		logger.ErrorWithErr(r.Context(), "OAuth code exchange failed", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), "Failed to encode response", "error", err.Error())
	}
}
