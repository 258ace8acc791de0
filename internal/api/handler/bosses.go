package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/bosswatch/internal/api/respond"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/cache"
)

const maxKillLimit = 500

// BossView is one row of the list view.
type BossView struct {
	boss.Boss
	State    string     `json:"state"`
	Next     *time.Time `json:"next,omitempty"`
	NextText string     `json:"next_text"`
	Respawn  string     `json:"respawn"`
	First    string     `json:"first"`
}

// StateView is the global schedule state.
type StateView struct {
	Now               time.Time  `json:"now"`
	Timezone          string     `json:"timezone"`
	RestartAt         *time.Time `json:"restart_at,omitempty"`
	NotificationLeads []int      `json:"notification_leads"`
	Subscribers       int        `json:"subscribers"`
}

func (h *Handler) view(e boss.Entry) BossView {
	return BossView{
		Boss:     e.Boss,
		State:    e.Boss.State().String(),
		Next:     e.Next,
		NextText: h.svc.Zone().FormatShort(e.Next),
		Respawn:  boss.FormatInterval(e.Boss.RespawnMinutes),
		First:    boss.FormatFirst(e.Boss.FirstSpawnMinutes),
	}
}

// serveCached answers from the cache or builds, encodes and stores the value.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, build func() (any, error)) {
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	v, err := build()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode response")
		return
	}
	etag := h.cache.Set(key, raw, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, raw, etag, ttl, false)
}

// ListBosses returns active bosses ordered by next occurrence.
// @Summary List active bosses
// @Description Active bosses with their next occurrence, soonest first; unscheduled bosses last.
// @Tags bosses
// @Produce json
// @Success 200 {array} BossView
// @Header 200 {string} ETag "Weak ETag for conditional requests"
// @Router /bosses [get]
func (h *Handler) ListBosses(w http.ResponseWriter, r *http.Request) {
	h.serveCached(w, r, "bosses:list", cache.TTLBossList, func() (any, error) {
		entries, err := h.svc.List(r.Context())
		if err != nil {
			return nil, err
		}
		out := make([]BossView, 0, len(entries))
		for _, e := range entries {
			out = append(out, h.view(e))
		}
		return out, nil
	})
}

// GetBoss returns one boss, active or not.
// @Summary Get boss
// @Tags bosses
// @Produce json
// @Param bossID path int true "Boss ID"
// @Success 200 {object} BossView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /bosses/{bossID} [get]
func (h *Handler) GetBoss(w http.ResponseWriter, r *http.Request) {
	id, ok := bossID(w, r)
	if !ok {
		return
	}
	h.serveCached(w, r, fmt.Sprintf("boss:%d", id), cache.TTLBoss, func() (any, error) {
		e, err := h.svc.Describe(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return h.view(e), nil
	})
}

// GetKills returns the kill history of a boss, newest first.
// @Summary Kill history
// @Tags bosses
// @Produce json
// @Param bossID path int true "Boss ID"
// @Param limit query int false "Max records (default 50)"
// @Success 200 {array} boss.KillRecord
// @Failure 404 {object} respond.ErrorResponse
// @Router /bosses/{bossID}/kills [get]
func (h *Handler) GetKills(w http.ResponseWriter, r *http.Request) {
	id, ok := bossID(w, r)
	if !ok {
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxKillLimit {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT",
				fmt.Sprintf("limit must be between 1 and %d", maxKillLimit))
			return
		}
		limit = n
	}
	h.serveCached(w, r, fmt.Sprintf("kills:%d:%d", id, limit), cache.TTLKillLog, func() (any, error) {
		if _, err := h.svc.Store().GetBoss(r.Context(), id); err != nil {
			return nil, err
		}
		kills, err := h.svc.Store().ListKills(r.Context(), id, limit)
		if err != nil {
			return nil, err
		}
		if kills == nil {
			kills = []boss.KillRecord{}
		}
		return kills, nil
	})
}

// GetState returns the restart anchor and notification settings.
// @Summary Server state
// @Tags state
// @Produce json
// @Success 200 {object} StateView
// @Router /state [get]
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.svc.Store().ScheduleState(ctx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, StateView{
		Now:               h.svc.Now(),
		Timezone:          h.svc.Zone().Location().String(),
		RestartAt:         st.RestartAt,
		NotificationLeads: st.Leads,
		Subscribers:       h.subscribers.Len(),
	})
}

func bossID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "bossID"))
	if err != nil || id <= 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "bossID must be a positive integer")
		return 0, false
	}
	return id, true
}
