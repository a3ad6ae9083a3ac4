package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/appointment-booking/internal/cache"
	"github.com/magabrotheeeer/appointment-booking/internal/config"
	"github.com/magabrotheeeer/appointment-booking/internal/http/middlewarectx"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/jwt"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/password"
	"github.com/magabrotheeeer/appointment-booking/internal/lib/sl"
	"github.com/magabrotheeeer/appointment-booking/internal/metrics"
	"github.com/magabrotheeeer/appointment-booking/internal/models"
	appointmentservice "github.com/magabrotheeeer/appointment-booking/internal/services/appointment"
	authservice "github.com/magabrotheeeer/appointment-booking/internal/services/auth"
	"github.com/magabrotheeeer/appointment-booking/internal/storage/repository"
)

// memStore — хранилище пользователей и записей в памяти.
type memStore struct {
	mu           sync.Mutex
	users        map[string]models.User
	appointments map[int64]models.Appointment
	nextUser     int64
	nextAppt     int64
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]models.User{},
		appointments: map[int64]models.Appointment{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return 0, repository.ErrUserExists
	}
	m.nextUser++
	u.ID = m.nextUser
	m.users[u.Username] = u
	return u.ID, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) view(a models.Appointment) models.AppointmentView {
	var username string
	for _, u := range m.users {
		if u.ID == a.UserID {
			username = u.Username
		}
	}
	return models.AppointmentView{
		ID: a.ID, UserID: a.UserID, Username: username,
		StartTime: a.StartTime, EndTime: a.EndTime, Purpose: a.Purpose,
	}
}

func (m *memStore) CreateAppointment(_ context.Context, a models.Appointment) (*models.AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAppt++
	a.ID = m.nextAppt
	m.appointments[a.ID] = a
	v := m.view(a)
	return &v, nil
}

func (m *memStore) GetAppointment(_ context.Context, id int64) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memStore) UpdateAppointment(_ context.Context, a models.Appointment) (*models.AppointmentView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[a.ID]; !ok {
		return nil, repository.ErrAppointmentNotFound
	}
	m.appointments[a.ID] = a
	v := m.view(a)
	return &v, nil
}

func (m *memStore) list(keep func(models.Appointment) bool) []models.AppointmentView {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AppointmentView{}
	for _, a := range m.appointments {
		if keep(a) {
			out = append(out, m.view(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListAllAppointments(context.Context) ([]models.AppointmentView, error) {
	return m.list(func(models.Appointment) bool { return true }), nil
}

func (m *memStore) ListAppointmentsByOwner(_ context.Context, userID int64) ([]models.AppointmentView, error) {
	return m.list(func(a models.Appointment) bool { return a.UserID == userID }), nil
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := newMemStore()
	maker, err := jwt.NewJWTMaker("e2e-secret", "HS256")
	require.NoError(t, err)
	auth := authservice.NewAuthService(store, password.NewBcryptHasher(4), maker, sl.Discard(),
		authservice.Options{TokenTTL: 30 * time.Minute})

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	listCache, err := cache.InitServer(context.Background(), config.RedisConnection{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = listCache.Close() })

	_, err = auth.Seed(context.Background(), []authservice.SeedUser{
		{Username: "root", Password: "rootpw", IsAdmin: true},
	})
	require.NoError(t, err)

	appointmentSvc := appointmentservice.NewAppointmentService(store, nil, sl.Discard(),
		appointmentservice.WithCache(listCache, time.Minute))

	r := chi.NewRouter()
	RegisterRoutes(r, sl.Discard(), Dependencies{
		Auth:         auth,
		Appointments: appointmentSvc,
		Metrics:      metrics.New(prometheus.NewRegistry()),
		Limiter:      middlewarectx.NewIPRateLimiter(1000, 1000),
		CORSOrigins:  []string{"http://localhost:3000"},
	})
	return &testAPI{t: t, router: r}
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope, http.Header) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
	}
	return rr.Code, env, rr.Header()
}

func (a *testAPI) signin(username, pw string) string {
	a.t.Helper()
	code, env, _ := a.do(http.MethodPost, "/api/v1/signin", "", map[string]string{"username": username, "password": pw})
	require.Equal(a.t, http.StatusOK, code, env.Error)
	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &tok))
	assert.Equal(a.t, "bearer", tok.TokenType)
	assert.Equal(a.t, int64(1800), tok.ExpiresIn)
	return tok.AccessToken
}

func appointmentBody(purpose string, start time.Time) map[string]any {
	return map[string]any{
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(time.Hour).Format(time.RFC3339),
		"purpose":    purpose,
	}
}

func decodeViews(t *testing.T, raw json.RawMessage) []models.AppointmentView {
	t.Helper()
	var views []models.AppointmentView
	require.NoError(t, json.Unmarshal(raw, &views))
	return views
}

func TestAPI_AliceAndBob(t *testing.T) {
	api := newTestAPI(t)
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	// регистрация
	code, env, _ := api.do(http.MethodPost, "/api/v1/signup", "", map[string]any{"username": "alice", "password": "alicepw"})
	require.Equal(t, http.StatusCreated, code)
	assert.NotContains(t, string(env.Data), "password")

	code, _, _ = api.do(http.MethodPost, "/api/v1/signup", "", map[string]any{"username": "bob", "password": "bobpw", "is_admin": true})
	require.Equal(t, http.StatusCreated, code)

	code, env, _ = api.do(http.MethodPost, "/api/v1/signup", "", map[string]any{"username": "alice", "password": "x"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "username already exists", env.Error)

	// вход
	code, env, _ = api.do(http.MethodPost, "/api/v1/signin", "", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "incorrect username or password", env.Error)

	code, env2, _ := api.do(http.MethodPost, "/api/v1/signin", "", map[string]string{"username": "ghost", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, env.Error, env2.Error, "неизвестное имя неотличимо от неверного пароля")

	alice := api.signin("alice", "alicepw")
	bob := api.signin("bob", "bobpw")
	root := api.signin("root", "rootpw")

	// без токена
	code, _, hdr := api.do(http.MethodGet, "/api/v1/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Bearer", hdr.Get("WWW-Authenticate"))

	code, _, _ = api.do(http.MethodGet, "/api/v1/appointments", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// alice создаёт запись
	code, env, _ = api.do(http.MethodPost, "/api/v1/appointments", alice, appointmentBody("dentist", start))
	require.Equal(t, http.StatusCreated, code)
	var created models.AppointmentView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "dentist", created.Purpose)
	assert.True(t, created.StartTime.Equal(start))

	// bob не видит чужие записи; флаг is_admin при регистрации проигнорирован
	code, env, _ = api.do(http.MethodGet, "/api/v1/appointments", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))

	code, env, _ = api.do(http.MethodGet, "/api/v1/appointments", alice, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decodeViews(t, env.Data), 1)

	// bob не может менять запись alice
	path := fmt.Sprintf("/api/v1/appointments/%d", created.ID)
	code, env, _ = api.do(http.MethodPut, path, bob, appointmentBody("hijack", start))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "not enough permissions", env.Error)

	code, env, _ = api.do(http.MethodPut, "/api/v1/appointments/999", bob, appointmentBody("x", start))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "appointment not found", env.Error)

	code, _, _ = api.do(http.MethodPut, "/api/v1/appointments/abc", alice, appointmentBody("x", start))
	assert.Equal(t, http.StatusBadRequest, code)

	// alice меняет свою запись
	code, env, _ = api.do(http.MethodPut, path, alice, appointmentBody("dentist, moved", start.Add(24*time.Hour)))
	require.Equal(t, http.StatusOK, code)
	var updated models.AppointmentView
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "dentist, moved", updated.Purpose)

	// bob создаёт свою запись
	code, _, _ = api.do(http.MethodPost, "/api/v1/appointments", bob, appointmentBody("physio", start))
	require.Equal(t, http.StatusCreated, code)

	code, env, _ = api.do(http.MethodGet, "/api/v1/appointments", alice, nil)
	require.Equal(t, http.StatusOK, code)
	views := decodeViews(t, env.Data)
	require.Len(t, views, 1)
	assert.Equal(t, "dentist, moved", views[0].Purpose)

	// администратор видит всё и может менять чужое, владелец сохраняется
	code, env, _ = api.do(http.MethodGet, "/api/v1/appointments", root, nil)
	require.Equal(t, http.StatusOK, code)
	views = decodeViews(t, env.Data)
	require.Len(t, views, 2)
	assert.ElementsMatch(t, []string{"alice", "bob"}, []string{views[0].Username, views[1].Username})

	code, env, _ = api.do(http.MethodPut, path, root, appointmentBody("rescheduled by admin", start))
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, created.UserID, updated.UserID)

	// запись администратора принадлежит ему самому
	code, env, _ = api.do(http.MethodPost, "/api/v1/appointments", root, appointmentBody("admin's own", start))
	require.Equal(t, http.StatusCreated, code)
	var own models.AppointmentView
	require.NoError(t, json.Unmarshal(env.Data, &own))
	assert.Equal(t, "root", own.Username)

	// закэшированные списки сбрасываются после чужих изменений
	code, env, _ = api.do(http.MethodGet, "/api/v1/appointments", alice, nil)
	require.Equal(t, http.StatusOK, code)
	views = decodeViews(t, env.Data)
	require.Len(t, views, 1)
	assert.Equal(t, "rescheduled by admin", views[0].Purpose)

	code, env, _ = api.do(http.MethodGet, "/api/v1/appointments", root, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeViews(t, env.Data), 3)
}

func TestAPI_Validation(t *testing.T) {
	api := newTestAPI(t)
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	code, _, _ := api.do(http.MethodPost, "/api/v1/signup", "", map[string]any{"username": "carol"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _, _ = api.do(http.MethodPost, "/api/v1/signup", "", map[string]any{"username": "carol", "password": "pw"})
	require.Equal(t, http.StatusCreated, code)
	carol := api.signin("carol", "pw")

	body := map[string]any{
		"start_time": start.Format(time.RFC3339),
		"end_time":   start.Add(-time.Minute).Format(time.RFC3339),
		"purpose":    "backwards",
	}
	code, env, _ := api.do(http.MethodPost, "/api/v1/appointments", carol, body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Error, "EndTime")
}

func TestAPI_PublicEndpoints(t *testing.T) {
	api := newTestAPI(t)

	code, env, _ := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", env.Status)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	api.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
