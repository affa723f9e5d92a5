package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/stride/internal/health"
	"github.com/tahcohcat/stride/internal/leaderboard"
	"github.com/tahcohcat/stride/internal/logger"
	"github.com/tahcohcat/stride/internal/models"
	"github.com/tahcohcat/stride/internal/services"
	"github.com/tahcohcat/stride/internal/stats"
	"github.com/tahcohcat/stride/internal/stepsync"
	"github.com/tahcohcat/stride/internal/store"
	"github.com/tahcohcat/stride/internal/websocket"
)

const maxImportBytes = 10 << 20

// Publisher pushes live events to connected clients.
type Publisher interface {
	Publish(eventType string, data any)
}

// Deps are the services the API is built on. Leaderboard and Events may be nil.
type Deps struct {
	Store            *store.Store
	Scheduler        *stepsync.Scheduler
	Achievements     *services.AchievementService
	Profiles         *services.ProfileService
	Leaderboard      *leaderboard.Client
	LeaderboardLimit int
	Events           Publisher
	Location         *time.Location
	Now              func() time.Time
}

type Handler struct {
	Deps
	log *logger.Log
}

func NewHandler(d Deps) *Handler {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Handler{Deps: d, log: logger.Named("api")}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/steps", h.ListSteps).Methods("GET")
	r.HandleFunc("/steps", h.AddSteps).Methods("POST")
	r.HandleFunc("/steps/{date}", h.GetSteps).Methods("GET")
	r.HandleFunc("/steps/{date}", h.DeleteSteps).Methods("DELETE")
	r.HandleFunc("/stats", h.GetStats).Methods("GET")

	r.HandleFunc("/sync", h.TriggerSync).Methods("POST")
	r.HandleFunc("/sync/status", h.SyncStatus).Methods("GET")
	r.HandleFunc("/health/permissions", h.RequestPermissions).Methods("POST")

	r.HandleFunc("/profile", h.GetProfile).Methods("GET")
	r.HandleFunc("/profile", h.UpdateProfile).Methods("PUT")
	r.HandleFunc("/profile/badge", h.SelectBadge).Methods("PUT")

	r.HandleFunc("/achievements", h.GetAchievements).Methods("GET")
	r.HandleFunc("/achievements/notifications", h.GetNotifications).Methods("GET")
	r.HandleFunc("/milestones/{value}/dismiss", h.DismissMilestone).Methods("POST")
	r.HandleFunc("/milestones/{value}/unwrap", h.UnwrapMilestone).Methods("POST")

	r.HandleFunc("/leaderboard", h.GetLeaderboard).Methods("GET")

	r.HandleFunc("/export", h.Export).Methods("GET")
	r.HandleFunc("/import", h.Import).Methods("POST")
	r.HandleFunc("/weather/{date}", h.PutWeather).Methods("PUT")
}

func (h *Handler) today() string {
	return models.FormatDate(h.Now().In(h.Location))
}

// GET /api/v1/steps?start=&end=
func (h *Handler) ListSteps(w http.ResponseWriter, r *http.Request) {
	start, end := r.URL.Query().Get("start"), r.URL.Query().Get("end")
	if start == "" && end == "" {
		writeJSON(w, http.StatusOK, h.Store.GetAll())
		return
	}

	if start == "" {
		start = "0000-01-01"
	} else if _, err := models.ParseDate(start); err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	if end == "" {
		end = h.today()
	} else if _, err := models.ParseDate(end); err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}

	entries, err := h.Store.Range(start, end)
	if err != nil {
		h.internalError(w, err, "Failed to read steps")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// POST /api/v1/steps
func (h *Handler) AddSteps(w http.ResponseWriter, r *http.Request) {
	var in models.StepInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Store.Add(in)
	if err != nil {
		h.storeError(w, err)
		return
	}
	h.publish(websocket.EventSteps, entry)
	writeJSON(w, http.StatusCreated, entry)
}

// GET /api/v1/steps/{date}
func (h *Handler) GetSteps(w http.ResponseWriter, r *http.Request) {
	date, ok := dateVar(w, r)
	if !ok {
		return
	}

	entry, err := h.Store.Get(date)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DELETE /api/v1/steps/{date}
func (h *Handler) DeleteSteps(w http.ResponseWriter, r *http.Request) {
	date, ok := dateVar(w, r)
	if !ok {
		return
	}

	if err := h.Store.Delete(date); err != nil {
		h.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stats.Summarize(h.Store.GetAll(), h.today()))
}

// POST /api/v1/sync
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scheduler.Trigger(r.Context())
	if errors.Is(err, stepsync.ErrThrottled) {
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}
	h.publish(websocket.EventSync, result)
	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/sync/status
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scheduler.Engine().Status())
}

// POST /api/v1/health/permissions
func (h *Handler) RequestPermissions(w http.ResponseWriter, r *http.Request) {
	err := h.Scheduler.Engine().RequestPermissions(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"granted": true})
	case errors.Is(err, health.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, health.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.internalError(w, err, "Permission request failed")
	}
}

// GET /api/v1/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Profiles.Get()
	if err != nil {
		h.internalError(w, err, "Failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// PUT /api/v1/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.Profiles.Update(req)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// PUT /api/v1/profile/badge with {"badge": 2} or {"badge": "marathon"}; null clears it.
func (h *Handler) SelectBadge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Badge any `json:"badge"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var ref string
	switch v := req.Badge.(type) {
	case nil:
	case string:
		ref = v
	case float64:
		ref = strconv.Itoa(int(v))
	default:
		writeError(w, http.StatusBadRequest, "badge must be an id or a name")
		return
	}

	profile, err := h.Profiles.SelectBadge(ref)
	switch {
	case errors.Is(err, services.ErrBadgeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrBadgeLocked):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.internalError(w, err, "Failed to select badge")
	default:
		writeJSON(w, http.StatusOK, profile)
	}
}

// GET /api/v1/achievements
func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Achievements.Overview())
}

// GET /api/v1/achievements/notifications
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Achievements.Notifications())
}

// POST /api/v1/milestones/{value}/dismiss
func (h *Handler) DismissMilestone(w http.ResponseWriter, r *http.Request) {
	h.milestoneAction(w, r, h.Achievements.DismissMilestone)
}

// POST /api/v1/milestones/{value}/unwrap
func (h *Handler) UnwrapMilestone(w http.ResponseWriter, r *http.Request) {
	h.milestoneAction(w, r, h.Achievements.UnwrapMilestone)
}

func (h *Handler) milestoneAction(w http.ResponseWriter, r *http.Request, action func(int) error) {
	value, err := strconv.Atoi(mux.Vars(r)["value"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "milestone must be a number")
		return
	}

	err = action(value)
	switch {
	case errors.Is(err, services.ErrUnknownMilestone):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrMilestoneLocked):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.internalError(w, err, "Failed to update milestone")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/v1/leaderboard?period=yesterday|weekly|alltime
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if h.Leaderboard == nil {
		writeError(w, http.StatusServiceUnavailable, leaderboard.ErrDisabled.Error())
		return
	}

	period, err := leaderboard.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := h.today()
	board, err := h.Leaderboard.Rankings(r.Context(), period, today, h.LeaderboardLimit)
	if err != nil {
		h.internalError(w, err, "Failed to load leaderboard")
		return
	}

	response := map[string]any{"leaderboard": board}
	if profile := h.Store.Profile(); profile != nil {
		me, err := h.Leaderboard.RankOf(r.Context(), profile.UserID, period, today)
		if err == nil {
			response["me"] = me
		} else if !errors.Is(err, leaderboard.ErrNotRanked) {
			h.log.WithError(err).Warn("Failed to load own rank")
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// GET /api/v1/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Store.Export()
	if err != nil {
		h.internalError(w, err, "Failed to export")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stride-export-%s.json"`, h.today()))
	writeJSON(w, http.StatusOK, snapshot)
}

// POST /api/v1/import?mode=overwrite|merge
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	result, err := h.Store.Import(data, models.ImportMode(r.URL.Query().Get("mode")))
	if errors.Is(err, store.ErrInvalidFormat) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PUT /api/v1/weather/{date}
func (h *Handler) PutWeather(w http.ResponseWriter, r *http.Request) {
	date, ok := dateVar(w, r)
	if !ok {
		return
	}

	var day models.WeatherDay
	if err := json.NewDecoder(r.Body).Decode(&day); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	day.Date = date

	if err := h.Store.PutWeather(day); err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Store.Weather()[date])
}

func (h *Handler) publish(eventType string, data any) {
	if h.Events != nil {
		h.Events.Publish(eventType, data)
	}
}

// storeError maps validation and lookup failures to client errors.
func (h *Handler) storeError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		h.internalError(w, err, "Request failed")
	}
}

func (h *Handler) internalError(w http.ResponseWriter, err error, msg string) {
	h.log.WithError(err).Error(msg)
	writeError(w, http.StatusInternalServerError, msg)
}

func dateVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := mux.Vars(r)["date"]
	if _, err := models.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
