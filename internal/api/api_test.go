// Lumaskin - Skincare Routine Reminders and Multi-Channel Notifications
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumaskin

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/lumaskin/internal/auth"
	"github.com/tomtom215/lumaskin/internal/authz"
	"github.com/tomtom215/lumaskin/internal/config"
	"github.com/tomtom215/lumaskin/internal/logging"
	"github.com/tomtom215/lumaskin/internal/models"
)

const testServiceKey = "test-service-key"

type testEnv struct {
	server *httptest.Server
	prefs  *fakePreferences
	store  *fakeStore
	events *fakeEvents
	ticks  *fakeTicks
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	badgerDB, err := auth.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { badgerDB.Close() })

	jwtManager, err := auth.NewJWTManager("api-test-secret-with-enough-entropy", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	logger := zerolog.Nop()
	authenticator := auth.NewAuthenticator(jwtManager, auth.NewBadgerSessionStore(badgerDB), testServiceKey, &logger)

	enforcer, err := authz.NewEnforcer(context.Background(), authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(enforcer.Close)

	env := &testEnv{
		prefs:  newFakePreferences(),
		store:  &fakeStore{},
		events: &fakeEvents{},
		ticks:  &fakeTicks{},
	}
	h := NewHandler(Dependencies{
		Preferences:  env.prefs,
		Phone:        &fakePhone{},
		Capabilities: &fakeCapabilities{},
		Gamification: &fakeGamification{},
		Events:       env.events,
		Ticks:        env.ticks,
		Sessions:     authenticator,
		Store:        env.store,
	}, &config.Config{}, "test")

	router := NewRouter(h, RouterConfig{
		Middleware: &ChiMiddlewareConfig{RateLimitDisabled: true},
		Authn:      auth.NewMiddleware(authenticator, WriteError),
		Authz:      authz.NewMiddleware(enforcer, WriteError),
	})
	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, headers map[string]string) (*http.Response, APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var envelope APIResponse
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			t.Fatalf("%s %s: decode envelope: %v", method, path, err)
		}
	}
	return resp, envelope
}

// login issues a session through the service-key endpoint.
func (e *testEnv) login(t *testing.T, userID, role string) string {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/v1/auth/sessions", "",
		CreateSessionRequest{UserID: userID, Role: role},
		map[string]string{auth.ServiceKeyHeader: testServiceKey})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session: status %d, error %+v", resp.StatusCode, env.Error)
	}
	data, _ := env.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("create session returned no token")
	}
	return token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/health", "", nil, nil)
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, success = %v", resp.StatusCode, body.Success)
	}

	env.store.pingErr = errDatabaseDown
	resp, body = env.do(t, http.MethodGet, "/api/v1/health", "", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		token   string
		headers map[string]string
	}{
		{"no credentials", "", nil},
		{"garbage token", "not-a-jwt", nil},
		{"wrong service key", "", map[string]string{auth.ServiceKeyHeader: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, http.MethodGet, "/api/v1/me/preferences", tt.token, nil, tt.headers)
			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", resp.StatusCode)
			}
			if body.Error == nil || body.Error.Code != ErrCodeUnauthorized {
				t.Errorf("error = %+v", body.Error)
			}
		})
	}
}

func TestSessionCreatesDefaultPreferences(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")

	resp, body := env.do(t, http.MethodGet, "/api/v1/me/preferences", token, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", resp.StatusCode, body.Error)
	}
	if got := resp.Header.Get("ETag"); got != `"1"` {
		t.Errorf("ETag = %q, want \"1\"", got)
	}
	data := body.Data.(map[string]interface{})
	if data["user_id"] != "user-1" {
		t.Errorf("user_id = %v", data["user_id"])
	}
}

func TestRevokedSessionIsRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")

	resp, _ := env.do(t, http.MethodDelete, "/api/v1/auth/sessions/current", token, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/me/preferences", token, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status after revoke = %d, want 401", resp.StatusCode)
	}
}

func TestUpdatePreferencesIfMatch(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")
	off := false

	tests := []struct {
		name    string
		ifMatch string
		want    int
	}{
		{"unconditional", "", http.StatusOK},
		{"matching version", `"1"`, http.StatusOK},
		{"stale version", `"7"`, http.StatusPreconditionFailed},
		{"weak etag", `W/"1"`, http.StatusOK},
		{"garbage", "abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers map[string]string
			if tt.ifMatch != "" {
				headers = map[string]string{"If-Match": tt.ifMatch}
			}
			resp, body := env.do(t, http.MethodPatch, "/api/v1/me/preferences", token,
				models.PreferenceUpdate{AMReminderEnabled: &off}, headers)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (error %+v)", resp.StatusCode, tt.want, body.Error)
			}
		})
	}
}

func TestUpdatePreferencesRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")

	resp, body := env.do(t, http.MethodPatch, "/api/v1/me/preferences", token,
		map[string]interface{}{"pushh_enabled": true}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeValidationFailed {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestAuthorizationByRole(t *testing.T) {
	env := newTestEnv(t)
	client := env.login(t, "user-1", "client")
	pro := env.login(t, "pro-1", "professional")
	admin := env.login(t, "admin-1", "admin")

	event := models.DomainEvent{UserID: "user-1", Category: models.CategoryFeedback, EntityID: "fb-1"}

	tests := []struct {
		name   string
		token  string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"client cannot publish events", client, http.MethodPost, "/api/v1/events", event, http.StatusForbidden},
		{"professional publishes events", pro, http.MethodPost, "/api/v1/events", event, http.StatusAccepted},
		{"client cannot run ticks", client, http.MethodPost, "/api/v1/admin/ticks", nil, http.StatusForbidden},
		{"professional cannot run ticks", pro, http.MethodPost, "/api/v1/admin/ticks", nil, http.StatusForbidden},
		{"admin runs ticks", admin, http.MethodPost, "/api/v1/admin/ticks", nil, http.StatusOK},
		{"admin inherits client routes", admin, http.MethodGet, "/api/v1/me/gamification", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.do(t, tt.method, tt.path, tt.token, tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (error %+v)", resp.StatusCode, tt.want, body.Error)
			}
		})
	}

	if len(env.events.published) != 1 {
		t.Errorf("published %d events, want 1", len(env.events.published))
	} else if env.events.published[0].EventID == "" {
		t.Error("published event has no id")
	}
}

func TestPublishEventRejectsTickCategory(t *testing.T) {
	env := newTestEnv(t)
	pro := env.login(t, "pro-1", "professional")

	ev := models.DomainEvent{UserID: "user-1", Category: models.CategoryAMReminder, EntityID: "x"}
	resp, _ := env.do(t, http.MethodPost, "/api/v1/events", pro, ev, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPushActions(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")

	tests := []struct {
		action string
		want   int
	}{
		{"start-routine", http.StatusOK},
		{"dismiss", http.StatusOK},
		{"snooze", http.StatusNotImplemented},
		{"launch_rockets", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			req := PushActionRequest{Category: models.CategoryAMReminder, Action: tt.action}
			resp, body := env.do(t, http.MethodPost, "/api/v1/push/actions", token, req, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (error %+v)", resp.StatusCode, tt.want, body.Error)
			}
		})
	}
}

// syncBuffer collects log output written from server goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPushActionSnoozeIsLogged(t *testing.T) {
	var logs syncBuffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &logs})
	defer logging.Init(logging.DefaultConfig())

	env := newTestEnv(t)
	token := env.login(t, "user-1", "")

	req := PushActionRequest{Category: models.CategoryPMReminder, Action: "snooze"}
	resp, _ := env.do(t, http.MethodPost, "/api/v1/push/actions", token, req, nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}

	for _, line := range strings.Split(logs.String(), "\n") {
		if strings.Contains(line, `"action":"snooze"`) &&
			strings.Contains(line, `"user_id":"user-1"`) &&
			strings.Contains(line, `"category":"pm_reminder"`) {
			return
		}
	}
	t.Errorf("no snooze log line with user, category and action in:\n%s", logs.String())
}

func TestCompleteRoutineIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")
	req := CompletionRequest{RoutineType: models.RoutineMorning}

	resp, _ := env.do(t, http.MethodPost, "/api/v1/me/completions", token, req, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first completion status = %d, want 201", resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodPost, "/api/v1/me/completions", token, req, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("repeat completion status = %d, want 200", resp.StatusCode)
	}
	if recorded := body.Data.(map[string]interface{})["recorded"]; recorded != false {
		t.Errorf("recorded = %v, want false", recorded)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/v1/me/completions", token, map[string]string{"routine_type": "noon"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid routine status = %d, want 400", resp.StatusCode)
	}
}

func TestNotificationInbox(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")
	env.store.notifications = []models.InAppNotification{
		{ID: "n1", UserID: "user-1", Title: "a"},
		{ID: "n2", UserID: "user-1", Title: "b"},
		{ID: "n3", UserID: "user-2", Title: "c"},
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/me/notifications?limit=1", token, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if body.Meta == nil || body.Meta.Pagination == nil {
		t.Fatal("missing pagination")
	}
	if p := body.Meta.Pagination; p.Total != 2 || p.Count != 1 || !p.HasMore {
		t.Errorf("pagination = %+v", p)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/v1/me/notifications/n3/read", token, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("marking another user's notification: status = %d, want 404", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/v1/me/notifications/n1/read", token, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("mark read status = %d, want 204", resp.StatusCode)
	}

	_, body = env.do(t, http.MethodGet, "/api/v1/me/notifications/unread-count", token, nil, nil)
	if got := body.Data.(map[string]interface{})["unread"]; got != float64(1) {
		t.Errorf("unread = %v, want 1", got)
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/me/notifications?limit=500", token, nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized limit status = %d, want 400", resp.StatusCode)
	}
}

func TestPushSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "user-1", "")

	sub := models.PushSubscription{Endpoint: "https://push.example.com/abc", P256dhKey: "key", AuthKey: "auth"}
	resp, body := env.do(t, http.MethodPost, "/api/v1/me/push-subscriptions", token, sub, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d (error %+v)", resp.StatusCode, body.Error)
	}
	id := body.Data.(map[string]interface{})["id"].(string)

	resp, _ = env.do(t, http.MethodDelete, "/api/v1/me/push-subscriptions/"+id, token, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/me/push-subscriptions/"+id, token, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestAppointmentsByService(t *testing.T) {
	env := newTestEnv(t)
	svc := map[string]string{auth.ServiceKeyHeader: testServiceKey}

	req := AppointmentRequest{UserID: "user-1", Title: "Facial", StartsAt: time.Now().Add(48 * time.Hour)}
	resp, body := env.do(t, http.MethodPut, "/api/v1/appointments/appt-1", "", req, svc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d (error %+v)", resp.StatusCode, body.Error)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/appointments/appt-1", "", nil, svc)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/api/v1/appointments/missing", "", nil, svc)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cancel missing status = %d, want 404", resp.StatusCode)
	}
}

func TestLastTick(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin-1", "admin")

	resp, _ := env.do(t, http.MethodGet, "/api/v1/admin/ticks/last", admin, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status before any tick = %d, want 404", resp.StatusCode)
	}
	env.do(t, http.MethodPost, "/api/v1/admin/ticks", admin, nil, nil)
	resp, _ = env.do(t, http.MethodGet, "/api/v1/admin/ticks/last", admin, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status after tick = %d, want 200", resp.StatusCode)
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/nope", "", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestParseIfMatch(t *testing.T) {
	tests := []struct {
		header  string
		want    int64
		wantNil bool
		wantErr bool
	}{
		{header: "", wantNil: true},
		{header: `"3"`, want: 3},
		{header: `W/"12"`, want: 12},
		{header: "5", want: 5},
		{header: `"0"`, wantErr: true},
		{header: `"x"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPatch, "/", nil)
			if tt.header != "" {
				r.Header.Set("If-Match", tt.header)
			}
			got, err := parseIfMatch(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("got %d, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("got %v, want %d", got, tt.want)
			}
		})
	}
}
