package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aviralsaxena16/Campus-Companion/internal/errs"
	"github.com/aviralsaxena16/Campus-Companion/internal/gating"
	"github.com/aviralsaxena16/Campus-Companion/internal/model"
	"github.com/aviralsaxena16/Campus-Companion/internal/scheduler"
	"github.com/aviralsaxena16/Campus-Companion/internal/service"
	"github.com/aviralsaxena16/Campus-Companion/pkg/config"
	"github.com/aviralsaxena16/Campus-Companion/pkg/util"
)

const testJWTSecret = "router-test-secret"

// fakeStore implements every persistence interface the services need.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*model.Update
	users  map[string]*model.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, users: make(map[string]*model.User)}
}

func (s *fakeStore) Upsert(ctx context.Context, u *model.Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.UserID == u.UserID && r.SourceID == u.SourceID {
			return false, nil
		}
	}
	row := *u
	row.ID = s.nextID
	row.DiscoveredAt = time.Now()
	row.IsImportant = true
	s.nextID++
	s.rows = append(s.rows, &row)
	u.ID = row.ID
	return true, nil
}

func (s *fakeStore) ListSourceIDs(ctx context.Context, userID int) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{})
	for _, r := range s.rows {
		if r.UserID == userID {
			out[r.SourceID] = struct{}{}
		}
	}
	return out, nil
}

func (s *fakeStore) ListByUser(ctx context.Context, userID int, onlyImportant bool, limit int) ([]model.Update, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Update
	for i := len(s.rows) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.rows[i]
		if r.UserID != userID || (onlyImportant && !r.IsImportant) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeStore) LowerImportance(ctx context.Context, updateID int64, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == updateID && r.UserID == userID {
			r.IsImportant = false
			return nil
		}
	}
	return errs.ErrNotFound
}

func (s *fakeStore) Exists(ctx context.Context, updateID int64, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == updateID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Insert(ctx context.Context, f *model.Feedback) error { return nil }

func (s *fakeStore) FindByID(ctx context.Context, id int) (*model.User, error) {
	return &model.User{ID: id, Email: fmt.Sprintf("u%d@example.com", id)}, nil
}

func (s *fakeStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = len(s.users) + 1
	s.users[u.Email] = u
	return nil
}

func (s *fakeStore) SaveGoogleTokens(ctx context.Context, userID int, accessToken, refreshToken string) error {
	return nil
}

func (s *fakeStore) seed(userID int, sourceID string, important bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := &model.Update{
		ID:           s.nextID,
		UserID:       userID,
		SourceID:     sourceID,
		Label:        "career",
		Title:        "Internship posting",
		DiscoveredAt: time.Now(),
		IsImportant:  important,
	}
	s.nextID++
	s.rows = append(s.rows, row)
	return row.ID
}

type noopFetcher struct{}

func (noopFetcher) Fetch(ctx context.Context, user *model.User) ([]model.MailItem, error) {
	return nil, nil
}

type noopClassifier struct{}

func (noopClassifier) Classify(ctx context.Context, batch []model.MailItem) ([]model.Prediction, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, store *fakeStore) (*gin.Engine, *scheduler.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	scanSvc := service.NewScanService(
		store, store, noopFetcher{}, noopClassifier{},
		gating.NewPolicy(config.GatingConfig{}), nil, log,
	)
	feedbackSvc := service.NewFeedbackService(store, store, log)
	authSvc := service.NewAuthService(store, testJWTSecret, nil)

	reg := scheduler.NewRegistry(scanSvc, scheduler.NewRealClock(), config.SchedulerConfig{
		IntervalMinutes:   24 * 60,
		RunTimeoutSeconds: 5,
		MaxConcurrentRuns: 2,
	}, nil, log)
	reg.Start()
	t.Cleanup(reg.Stop)

	router := NewRouter(
		NewAuthHandler(authSvc),
		NewUpdatesHandler(scanSvc, reg, log),
		NewFeedbackHandler(feedbackSvc),
		testJWTSecret,
	)
	return router.Engine, reg
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, userID int, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := util.GenerateJWT(userID, testJWTSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine, _ := newTestRouter(t, newFakeStore())

	w := doJSON(t, engine, http.MethodGet, "/updates", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/updates", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUpdatesFiltersHiddenByDefault(t *testing.T) {
	store := newFakeStore()
	store.seed(1, "m1", true)
	store.seed(1, "m2", false)
	store.seed(2, "m3", true)
	engine, _ := newTestRouter(t, store)

	w := doJSON(t, engine, http.MethodGet, "/updates", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Updates []model.Update `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Updates, 1)
	assert.Equal(t, "m1", resp.Updates[0].SourceID)

	w = doJSON(t, engine, http.MethodGet, "/updates?important_only=false", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Updates, 2, "hidden rows appear only when explicitly requested")
}

func TestScheduleAndUnscheduleScan(t *testing.T) {
	engine, reg := newTestRouter(t, newFakeStore())

	w := doJSON(t, engine, http.MethodPost, "/updates/schedule", 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reg.IsRegistered(1))

	// Scheduling twice is harmless.
	w = doJSON(t, engine, http.MethodPost, "/updates/schedule", 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodDelete, "/updates/schedule", 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, reg.IsRegistered(1))
}

func TestScanNowAcknowledgesWithRunID(t *testing.T) {
	engine, _ := newTestRouter(t, newFakeStore())

	w := doJSON(t, engine, http.MethodPost, "/updates/scan_now", 1, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "started", resp["status"])
	assert.NotEmpty(t, resp["run_id"])
}

func TestPostFeedbackMapsNotFound(t *testing.T) {
	store := newFakeStore()
	id := store.seed(1, "m1", true)
	engine, _ := newTestRouter(t, store)

	no := false
	w := doJSON(t, engine, http.MethodPost, "/feedback", 2, gin.H{"update_id": id, "is_correct": &no})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/feedback", 1, gin.H{"update_id": id, "is_correct": &no})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/updates", 1, nil)
	var resp struct {
		Updates []model.Update `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Updates)
}

func TestPostFeedbackRejectsMissingFields(t *testing.T) {
	engine, _ := newTestRouter(t, newFakeStore())

	w := doJSON(t, engine, http.MethodPost, "/feedback", 1, gin.H{"update_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHideUpdateEndpoint(t *testing.T) {
	store := newFakeStore()
	id := store.seed(1, "m1", true)
	engine, _ := newTestRouter(t, store)

	w := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/updates/%d/hide", id), 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/updates/999/hide", 1, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/updates/abc/hide", 1, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAndLoginFlow(t *testing.T) {
	engine, _ := newTestRouter(t, newFakeStore())

	w := doJSON(t, engine, http.MethodPost, "/register", 0, gin.H{
		"email": "student@example.com", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, engine, http.MethodPost, "/login", 0, gin.H{
		"email": "student@example.com", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])

	w = doJSON(t, engine, http.MethodPost, "/login", 0, gin.H{
		"email": "student@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	engine, _ := newTestRouter(t, newFakeStore())
	w := doJSON(t, engine, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
