package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/albapepper/bosswatch/internal/api/respond"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/clock"
)

// KillRequest records a kill. At accepts "HH:MM" or "DD.MM.YYYY HH:MM";
// empty means now.
type KillRequest struct {
	At   string `json:"at,omitempty"`
	Note string `json:"note,omitempty"`
}

// KillResponse reports the recorded kill and the resulting next occurrence.
type KillResponse struct {
	Boss     boss.Boss  `json:"boss"`
	KilledAt time.Time  `json:"killed_at"`
	Next     *time.Time `json:"next,omitempty"`
}

// RestartRequest moves the restart anchor. At accepts "now", "HH:MM" or
// "DD.MM.YYYY HH:MM"; empty means now.
type RestartRequest struct {
	At string `json:"at,omitempty"`
}

// RestartResponse reports the new anchor and how many announcements went out.
type RestartResponse struct {
	RestartAt time.Time `json:"restart_at"`
	Announced int       `json:"announced"`
}

// LeadsRequest replaces the notification lead times.
type LeadsRequest struct {
	Leads []int `json:"leads"`
}

// KillBoss records a kill.
// @Summary Record a kill
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bossID path int true "Boss ID"
// @Param body body KillRequest false "Kill time and note"
// @Success 200 {object} KillResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /bosses/{bossID}/kill [post]
func (h *Handler) KillBoss(w http.ResponseWriter, r *http.Request) {
	id, ok := bossID(w, r)
	if !ok {
		return
	}
	var req KillRequest
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body", err.Error())
			return
		}
	}

	at := h.svc.Now()
	if req.At != "" {
		var err error
		if at, err = h.svc.Zone().ParseKill(req.At, at); err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_TIME", "Use HH:MM or DD.MM.YYYY HH:MM")
			return
		}
	}
	note := req.Note
	if note == "" {
		note = "api"
	}

	b, next, err := h.svc.Kill(r.Context(), id, at, note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, KillResponse{Boss: b, KilledAt: *b.LastKill, Next: next})
}

// Restart records a server restart and announces near first spawns.
// @Summary Record a server restart
// @Description Moves the restart anchor, clears every recorded kill and announces bosses spawning soon after.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RestartRequest false "Restart time"
// @Success 200 {object} RestartResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /restart [post]
func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	var req RestartRequest
	if r.ContentLength != 0 {
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body", err.Error())
			return
		}
	}
	at, err := h.svc.Zone().ParseRestart(req.At, h.svc.Now())
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TIME", "Use now, HH:MM or DD.MM.YYYY HH:MM")
		return
	}
	if err := h.svc.Restart(r.Context(), at); err != nil {
		writeServiceError(w, err)
		return
	}
	alerts, err := h.announcer.AnnounceRestart(r.Context(), at, h.cfg.RestartAnnounceWithin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, RestartResponse{RestartAt: at, Announced: len(alerts)})
}

// SetNotifications replaces the notification lead times.
// @Summary Set notification lead times
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body LeadsRequest true "Lead minutes"
// @Success 200 {object} LeadsRequest
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /notifications [put]
func (h *Handler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	var req LeadsRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body", err.Error())
		return
	}
	leads, err := h.svc.SetNotificationLeads(r.Context(), req.Leads)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, LeadsRequest{Leads: leads})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, boss.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, boss.ErrDuplicateName):
		respond.WriteError(w, http.StatusConflict, "DUPLICATE", err.Error())
	case errors.Is(err, boss.ErrInvalidLeads),
		errors.Is(err, boss.ErrInvalidInterval),
		errors.Is(err, boss.ErrInvalidFirst),
		errors.Is(err, boss.ErrInvalidChance),
		errors.Is(err, boss.ErrInvalidName),
		errors.Is(err, clock.ErrBadTime):
		respond.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
	}
}
