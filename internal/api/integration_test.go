package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sharide/internal/api/handlers"
	"sharide/internal/api/middleware"
	"sharide/internal/auth"
	"sharide/internal/config"
	"sharide/internal/connectivity"
	"sharide/internal/domain/entities"
	"sharide/internal/metrics"
	"sharide/internal/repository"
	"sharide/internal/repository/memory"
	"sharide/internal/services"
)

type testServer struct {
	engine   *gin.Engine
	store    *memory.DocumentStore
	observer *connectivity.Observer
	jwt      *auth.JWTManager
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.NewDefaultConfig()
	store := memory.NewDocumentStore()
	cache := memory.NewNotificationCache()
	lockManager := memory.NewLockManager()
	t.Cleanup(lockManager.Stop)
	m := metrics.New()
	observer := connectivity.NewObserver(logger)
	observer.Available()
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, time.Hour)

	notificationService := services.NewNotificationService(cache, logger)
	ratingService, err := services.NewRatingService(store, lockManager, notificationService, m, cfg, logger)
	if err != nil {
		t.Fatalf("NewRatingService failed: %v", err)
	}
	directoryService := services.NewDirectoryService(store, m, cfg, logger)

	router := NewRouter(
		handlers.NewRatingHandler(ratingService),
		handlers.NewDirectoryHandler(directoryService),
		handlers.NewNotificationHandler(notificationService),
		handlers.NewHealthHandler(store, observer, time.Second),
		jwtManager,
		observer,
		m,
	)
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger))
	router.Setup(engine)

	return &testServer{engine: engine, store: store, observer: observer, jwt: jwtManager}
}

func (s *testServer) token(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	token, err := s.jwt.Generate(userID, role)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return response
}

func TestHealthEndpoint(t *testing.T) {
	s := setupTestServer(t)

	w := s.do("GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if got := decode(t, w)["connectivity"]; got != "connected" {
		t.Errorf("Expected connectivity connected, got %v", got)
	}

	s.store.Close()
	if w := s.do("GET", "/health", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 with closed store, got %d", w.Code)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	s := setupTestServer(t)

	if w := s.do("GET", "/ratings/u1/average", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestRecordRatingEndpoint(t *testing.T) {
	s := setupTestServer(t)
	rater := s.token(t, "u1", auth.RoleUser)

	w := s.do("POST", "/ratings", rater, `{"ratee_id":"u2","score":4.5,"description":"great ride"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	aggregate := response["aggregate"].(map[string]interface{})
	if aggregate["rating_count"] != float64(1) || aggregate["cumulative_score"] != 4.5 {
		t.Errorf("Unexpected aggregate %v", aggregate)
	}
	tx := response["transaction"].(map[string]interface{})
	if tx["from"] != "u1" || tx["to"] != "u2" {
		t.Errorf("Unexpected transaction %v", tx)
	}

	w = s.do("GET", "/ratings/u2/average", rater, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	avg := decode(t, w)
	if avg["average"] != 4.5 || avg["count"] != float64(1) {
		t.Errorf("Unexpected average %v", avg)
	}

	w = s.do("GET", "/ratings/u1/history", rater, "")
	history := decode(t, w)["transactions"].([]interface{})
	if len(history) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(history))
	}

	w = s.do("GET", "/ratings/u2/received", rater, "")
	received := decode(t, w)["transactions"].([]interface{})
	if len(received) != 1 {
		t.Errorf("Expected 1 received entry, got %d", len(received))
	}
}

func TestRecordRatingZeroScore(t *testing.T) {
	s := setupTestServer(t)

	w := s.do("POST", "/ratings", s.token(t, "u1", auth.RoleUser), `{"ratee_id":"u2","score":0}`)
	if w.Code != http.StatusCreated {
		t.Errorf("Expected zero score to be accepted, got %d. Body: %s", w.Code, w.Body.String())
	}
}

func TestRecordRatingRejected(t *testing.T) {
	s := setupTestServer(t)
	token := s.token(t, "u1", auth.RoleUser)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing score", `{"ratee_id":"u2"}`, http.StatusBadRequest},
		{"out of range", `{"ratee_id":"u2","score":9}`, http.StatusBadRequest},
		{"self rating", `{"ratee_id":"u1","score":3}`, http.StatusBadRequest},
		{"malformed", `{"ratee_id":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do("POST", "/ratings", token, tt.body); w.Code != tt.want {
				t.Errorf("Expected %d, got %d. Body: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestDisconnectedStoreGatesLedger(t *testing.T) {
	s := setupTestServer(t)
	token := s.token(t, "u1", auth.RoleUser)
	s.observer.Lost()

	if w := s.do("POST", "/ratings", token, `{"ratee_id":"u2","score":3}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while disconnected, got %d", w.Code)
	}
	if w := s.do("GET", "/directory/users?q=active", token, ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 while disconnected, got %d", w.Code)
	}
	// local notification cache stays available
	if w := s.do("GET", "/notifications", token, ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for notifications, got %d", w.Code)
	}
}

func TestDirectoryEndpoints(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	driver := entities.Driver{DrivingID: "880808088888", Name: "ALI BIN ABU", CarPlate: "JHB1234", Status: entities.StatusActive}
	s.store.Set(ctx, repository.CollectionDrivers, driver.DrivingID, driver.Fields())

	user := s.token(t, "u1", auth.RoleUser)
	admin := s.token(t, "adm-1", auth.RoleAdmin)

	w := s.do("GET", "/directory/driver?q=jhb1234", user, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	result := decode(t, w)
	if result["rule"] != "plate" || result["field"] != "carPlate" {
		t.Errorf("Unexpected classification %v", result)
	}
	if records := result["records"].([]interface{}); len(records) != 1 {
		t.Errorf("Expected 1 record, got %d", len(records))
	}

	w = s.do("GET", "/directory/driver?q=", user, "")
	if records := decode(t, w)["records"].([]interface{}); len(records) != 0 {
		t.Errorf("Expected blank query to match nothing, got %d", len(records))
	}

	if w := s.do("GET", "/directory/payments?q=x", user, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown collection, got %d", w.Code)
	}
	if w := s.do("GET", "/directory/driver/880808088888", user, ""); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for get, got %d", w.Code)
	}

	patch := `{"status":"SUSPENDED"}`
	if w := s.do("PATCH", "/directory/driver/880808088888", user, patch); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-admin update, got %d", w.Code)
	}
	w = s.do("PATCH", "/directory/driver/880808088888", admin, patch)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for admin update, got %d. Body: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["status"] != "SUSPENDED" {
		t.Errorf("Expected updated status, got %s", w.Body.String())
	}
	if w := s.do("PATCH", "/directory/driver/880808088888", admin, `{"drivingId":"1"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for key change, got %d", w.Code)
	}
}

func TestAdminGroupEndpoints(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	s.store.Set(ctx, repository.CollectionAdmins, "adm-1", entities.Admin{AdminID: "adm-1", GroupID: "grp-1"}.Fields())
	s.store.Set(ctx, repository.CollectionAdminGroups, "grp-1", entities.AdminGroup{GroupID: "grp-1", GroupName: "KTDI", MemberIDs: []string{"fb-1"}}.Fields())
	s.store.Set(ctx, repository.CollectionUsers, "fb-1", entities.User{FirebaseUserID: "fb-1", Name: "ALI"}.Fields())
	admin := s.token(t, "adm-1", auth.RoleAdmin)

	w := s.do("GET", "/admin/adm-1/group", admin, "")
	if w.Code != http.StatusOK || decode(t, w)["group_name"] != "KTDI" {
		t.Errorf("Unexpected group response %d %s", w.Code, w.Body.String())
	}

	w = s.do("GET", "/groups/grp-1/members", admin, "")
	if members := decode(t, w)["members"].([]interface{}); len(members) != 1 {
		t.Errorf("Expected 1 member, got %d", len(members))
	}

	if w := s.do("GET", "/groups/nope/members", admin, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	s := setupTestServer(t)
	rater := s.token(t, "u1", auth.RoleUser)
	ratee := s.token(t, "u2", auth.RoleDriver)

	s.do("POST", "/ratings", rater, `{"ratee_id":"u2","score":5}`)
	s.do("POST", "/ratings", s.token(t, "u3", auth.RoleUser), `{"ratee_id":"u2","score":4}`)

	w := s.do("GET", "/notifications", ratee, "")
	list := decode(t, w)["notifications"].([]interface{})
	if len(list) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(list))
	}
	id := list[0].(map[string]interface{})["id"].(string)

	if w := s.do("DELETE", "/notifications/"+id, rater, ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting another user's notification, got %d", w.Code)
	}
	if w := s.do("DELETE", "/notifications/"+id, ratee, ""); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}

	w = s.do("DELETE", "/notifications", ratee, "")
	if decode(t, w)["removed"] != float64(1) {
		t.Errorf("Expected 1 removed, got %s", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	s.do("POST", "/ratings", s.token(t, "u1", auth.RoleUser), `{"ratee_id":"u2","score":5}`)

	w := s.do("GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "sharide_ratings_recorded_total 1") {
		t.Error("Expected ratings counter in metrics output")
	}
}
