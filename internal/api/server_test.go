package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/bosswatch/internal/api"
	"github.com/albapepper/bosswatch/internal/api/handler"
	"github.com/albapepper/bosswatch/internal/boss"
	"github.com/albapepper/bosswatch/internal/cache"
	"github.com/albapepper/bosswatch/internal/clock"
	"github.com/albapepper/bosswatch/internal/config"
	"github.com/albapepper/bosswatch/internal/maintenance"
	"github.com/albapepper/bosswatch/internal/notifications"
	"github.com/albapepper/bosswatch/internal/respawn"
	"github.com/albapepper/bosswatch/internal/testutil"
)

const token = "s3cret"

type env struct {
	srv  *httptest.Server
	svc  *boss.Service
	zone *clock.Zone
}

func newEnv(t *testing.T) env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	zone := testutil.Zone(t)
	store := testutil.SQLiteStore(t, zone)
	clk := clock.NewFixed(zone.Date(2024, 1, 1, 12, 0))
	svc := boss.NewService(store, zone, clk, respawn.New(0), logger)

	sender := notifications.SenderFunc(func(context.Context, string, notifications.Alert) error { return nil })
	sched := notifications.NewScheduler(store, respawn.New(0), sender, zone, clk, notifications.DefaultConfig(), logger)
	appCache := cache.New(true)
	svc.Observe(maintenance.AfterChange(appCache, sched, logger))

	cfg := &config.Config{
		StoreDriver:           config.DriverSQLite,
		AdminAPIToken:         token,
		CORSAllowOrigins:      []string{"*"},
		RestartAnnounceWithin: 5 * time.Minute,
	}
	srv := httptest.NewServer(api.NewRouter(svc, sched, nil, appCache, cfg))
	t.Cleanup(srv.Close)
	return env{srv: srv, svc: svc, zone: zone}
}

func (e env) do(t *testing.T, method, path, body string, header map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func auth() map[string]string { return map[string]string{"Authorization": "Bearer " + token} }

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, "sqlite", body["driver"])
}

func TestListBosses_ETagAndPurge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	first := 300
	b, err := e.svc.AddBoss(ctx, boss.Input{Name: "Cabrio", ChancePercent: 50, RespawnMinutes: 600, FirstSpawnMinutes: &first})
	require.NoError(t, err)
	require.NoError(t, e.svc.Restart(ctx, e.zone.Date(2024, 1, 1, 9, 5)))

	resp := e.do(t, http.MethodGet, "/api/v1/bosses", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)
	list := decode[[]handler.BossView](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "14:05", list[0].NextText)
	assert.Equal(t, "awaiting_first_spawn", list[0].State)

	resp = e.do(t, http.MethodGet, "/api/v1/bosses", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/bosses/1/kill", `{"at":"11:00","note":"raid"}`, auth())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kill := decode[handler.KillResponse](t, resp)
	require.NotNil(t, kill.Next)
	assert.True(t, kill.Next.Equal(e.zone.Date(2024, 1, 1, 21, 0)))
	assert.Equal(t, b.ID, kill.Boss.ID)

	resp = e.do(t, http.MethodGet, "/api/v1/bosses", "", map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode, "kill purges the cached list")
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	list = decode[[]handler.BossView](t, resp)
	assert.Equal(t, "21:00", list[0].NextText)
	assert.Equal(t, "scheduled_from_kill", list[0].State)

	resp = e.do(t, http.MethodGet, "/api/v1/bosses/1/kills", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kills := decode[[]boss.KillRecord](t, resp)
	require.Len(t, kills, 1)
	assert.Equal(t, "raid", kills[0].Note)
}

func TestGetBoss_Errors(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/v1/bosses/42", "", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/bosses/abc", "", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/v1/bosses/1/kills?limit=0", "", nil).StatusCode)
}

func TestAdminAuth(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPost, "/api/v1/restart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/restart", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRestartAndState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	near, far := 5, 300
	_, err := e.svc.AddBoss(ctx, boss.Input{Name: "Near", RespawnMinutes: 60, FirstSpawnMinutes: &near})
	require.NoError(t, err)
	_, err = e.svc.AddBoss(ctx, boss.Input{Name: "Far", RespawnMinutes: 60, FirstSpawnMinutes: &far})
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/api/v1/restart", `{"at":"12:30"}`, auth())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[handler.RestartResponse](t, resp)
	assert.True(t, out.RestartAt.Equal(e.zone.Date(2024, 1, 1, 12, 30)))
	assert.Equal(t, 1, out.Announced)

	resp = e.do(t, http.MethodPost, "/api/v1/restart", `{"at":"whenever"}`, auth())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/v1/state", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := decode[handler.StateView](t, resp)
	require.NotNil(t, state.RestartAt)
	assert.True(t, state.RestartAt.Equal(e.zone.Date(2024, 1, 1, 12, 30)))
	assert.Equal(t, boss.DefaultLeads, state.NotificationLeads)
}

func TestSetNotifications(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodPut, "/api/v1/notifications", `{"leads":[5,30,5]}`, auth())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{30, 5}, decode[handler.LeadsRequest](t, resp).Leads)

	resp = e.do(t, http.MethodPut, "/api/v1/notifications", `{"leads":[0]}`, auth())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/api/v1/notifications", `{"lead":[1]}`, auth())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	h := api.AdminAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/restart", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
