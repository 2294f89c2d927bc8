package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/college-portal-service/internal/cache"
	"github.com/SAP-F-2025/college-portal-service/internal/events"
	"github.com/SAP-F-2025/college-portal-service/internal/models"
	"github.com/SAP-F-2025/college-portal-service/internal/repositories/filestore"
	"github.com/SAP-F-2025/college-portal-service/internal/services"
	"github.com/SAP-F-2025/college-portal-service/internal/utils"
	"github.com/SAP-F-2025/college-portal-service/internal/validator"
)

const testOrigin = "http://localhost:5173"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)

	rm := filestore.NewRepositoryManager(filestore.RepositoryConfig{DataDir: t.TempDir()})
	if err := rm.Initialize(); err != nil {
		t.Fatalf("repository Initialize() error = %v", err)
	}
	v := validator.New()
	sm := services.NewServiceManager(rm, slogger, v, cache.NewCacheManager(nil),
		events.NewMockEventPublisher(slogger), services.DefaultServiceManagerConfig())
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("services Initialize() error = %v", err)
	}
	t.Cleanup(func() { sm.Shutdown(context.Background()) })

	router := gin.New()
	SetupMiddleware(router, logger, []string{testOrigin})
	NewHandlerManager(sm, v, logger, rm.GetRepository().Driver()).SetupRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	got := decode[HealthResponse](t, w)
	if got.Status != "OK" || got.Storage != "file" {
		t.Errorf("body = %+v", got)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		origin string
		want   string
	}{
		{origin: testOrigin, want: testOrigin},
		{origin: "http://evil.example", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMenuRoutes(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/menu/seed", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("seed status = %d, body %s", w.Code, w.Body)
	}
	if seeded := decode[services.SeedResponse](t, w); seeded.Count != 9 {
		t.Errorf("seed count = %d, want 9", seeded.Count)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "get item", method: http.MethodGet, path: "/api/menu/admin-users", wantStatus: http.StatusOK},
		{name: "unknown item", method: http.MethodGet, path: "/api/menu/nope", wantStatus: http.StatusNotFound, wantError: "Menu item not found"},
		{name: "flat bad boolean", method: http.MethodGet, path: "/api/menu/flat?includeInactive=maybe", wantStatus: http.StatusBadRequest},
		{name: "stats", method: http.MethodGet, path: "/api/menu/stats/overview", wantStatus: http.StatusOK},
		{name: "create", method: http.MethodPost, path: "/api/menu", body: `{"label":"Library","parentId":"remote-app"}`, wantStatus: http.StatusCreated},
		{name: "create duplicate id", method: http.MethodPost, path: "/api/menu", body: `{"id":"admin-app","label":"Again"}`, wantStatus: http.StatusBadRequest, wantError: "Menu item with this ID already exists"},
		{name: "create missing parent", method: http.MethodPost, path: "/api/menu", body: `{"label":"Orphan","parentId":"ghost"}`, wantStatus: http.StatusBadRequest, wantError: "Parent menu item not found"},
		{name: "create without label", method: http.MethodPost, path: "/api/menu", body: `{"label":"   "}`, wantStatus: http.StatusBadRequest, wantError: "Validation failed"},
		{name: "create wrong type", method: http.MethodPost, path: "/api/menu", body: `{"label":"X","order":"first"}`, wantStatus: http.StatusBadRequest, wantError: "Validation failed"},
		{name: "update", method: http.MethodPut, path: "/api/menu/admin-system", body: `{"label":"Settings","order":9}`, wantStatus: http.StatusOK},
		{name: "update unknown", method: http.MethodPut, path: "/api/menu/nope", body: `{"label":"X"}`, wantStatus: http.StatusNotFound},
		{name: "update null parent", method: http.MethodPut, path: "/api/menu/admin-reports", body: `{"parentId":null}`, wantStatus: http.StatusOK},
		{name: "delete with children", method: http.MethodDelete, path: "/api/menu/admin-app", wantStatus: http.StatusBadRequest, wantError: "Cannot delete menu item with children. Please delete or reassign children first."},
		{name: "delete leaf", method: http.MethodDelete, path: "/api/menu/admin-menu-management", wantStatus: http.StatusOK},
		{name: "delete twice", method: http.MethodDelete, path: "/api/menu/admin-menu-management", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body)
			}
			if tt.wantError != "" {
				if got := decode[ErrorResponse](t, w); got.Error != tt.wantError {
					t.Errorf("error = %q, want %q", got.Error, tt.wantError)
				}
			}
		})
	}

	// The parent survives the rejected delete.
	if w := do(t, router, http.MethodGet, "/api/menu/admin-app", ""); w.Code != http.StatusOK {
		t.Errorf("admin-app status after rejected delete = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/api/menu?role=student", "")
	if w.Code != http.StatusOK {
		t.Fatalf("tree status = %d", w.Code)
	}
	tree := decode[[]*models.MenuNode](t, w)
	if len(tree) != 1 || tree[0].ID != "remote-app" {
		t.Fatalf("student tree roots = %+v", tree)
	}
	var children []string
	for _, c := range tree[0].Children {
		children = append(children, c.ID)
	}
	if want := []string{"library", "remote-dashboard", "remote-connections"}; !slices.Equal(children, want) {
		t.Errorf("student remote-app children = %v, want %v", children, want)
	}

	if got := decode[models.MenuItem](t, do(t, router, http.MethodGet, "/api/menu/admin-reports", "")); got.ParentID != nil {
		t.Errorf("admin-reports parentId = %q after null update", *got.ParentID)
	}

	// Unknown roles see the public items only.
	for _, role := range []string{"guest", "nobody"} {
		w := do(t, router, http.MethodGet, "/api/menu?role="+role, "")
		if w.Code != http.StatusOK {
			t.Fatalf("tree(%s) status = %d", role, w.Code)
		}
		got := decode[[]*models.MenuNode](t, w)
		if len(got) != 1 || got[0].ID != "remote-app" || len(got[0].Children) != 3 {
			t.Errorf("tree(%s) = %+v", role, got)
		}
	}
}

func TestUserSearch(t *testing.T) {
	router := newTestRouter(t)
	for _, body := range []string{
		`{"name":"Alina","email":"alina@college.edu","password":"secret123","role":"student"}`,
		`{"name":"Malik","email":"malik@college.edu","password":"secret123","role":"student"}`,
		`{"name":"Zed","email":"ALIce.z@college.edu","password":"secret123","role":"faculty"}`,
	} {
		if w := do(t, router, http.MethodPost, "/api/users", body); w.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", w.Code, w.Body)
		}
	}

	tests := []struct {
		name       string
		search     string
		wantStatus int
		wantNames  []string
	}{
		{name: "anchored", search: "%5Eali", wantStatus: http.StatusOK, wantNames: []string{"Alina", "Zed"}},
		{name: "substring", search: "ali", wantStatus: http.StatusOK, wantNames: []string{"Alina", "Malik", "Zed"}},
		{name: "alternation", search: "%5E(mal%7Czed)", wantStatus: http.StatusOK, wantNames: []string{"Malik", "Zed"}},
		{name: "invalid pattern", search: "%28ali", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, "/api/users?search="+tt.search, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body)
			}
			if tt.wantStatus != http.StatusOK {
				got := decode[ErrorResponse](t, w)
				if got.Error != "Validation failed" || !slices.Equal(got.Details, []string{"Search must be a valid regular expression"}) {
					t.Errorf("error = %+v", got)
				}
				return
			}
			got := decode[services.UserListResponse](t, w)
			var names []string
			for _, u := range got.Users {
				names = append(names, u.Name)
			}
			slices.Sort(names)
			if !slices.Equal(names, tt.wantNames) {
				t.Errorf("names = %v, want %v", names, tt.wantNames)
			}
		})
	}
}

func TestUserRoutes(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/api/users",
		`{"name":"Ada","email":"ada@college.edu","password":"secret123","role":"student","year":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("create response leaks credentials: %s", w.Body)
	}
	ada := decode[models.UserResponse](t, w)

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantError   string
		wantDetails []string
	}{
		{name: "get", method: http.MethodGet, path: "/api/users/" + ada.ID, wantStatus: http.StatusOK},
		{name: "get unknown", method: http.MethodGet, path: "/api/users/nope", wantStatus: http.StatusNotFound, wantError: "User not found"},
		{name: "list", method: http.MethodGet, path: "/api/users?page=1&limit=5&role=student", wantStatus: http.StatusOK},
		{
			name: "list bad pagination", method: http.MethodGet, path: "/api/users?page=0&limit=500",
			wantStatus: http.StatusBadRequest, wantError: "Invalid pagination parameters",
			wantDetails: []string{"Page must be a positive integer", "Limit must be a positive integer between 1 and 100"},
		},
		{
			name: "create invalid", method: http.MethodPost, path: "/api/users",
			body:       `{"name":"B","email":"nope","password":"123","role":"guest"}`,
			wantStatus: http.StatusBadRequest, wantError: "Validation failed",
		},
		{
			name: "create duplicate email", method: http.MethodPost, path: "/api/users",
			body:       `{"name":"Other","email":"ADA@college.edu","password":"secret123","role":"faculty"}`,
			wantStatus: http.StatusBadRequest, wantError: "User with this email already exists",
		},
		{
			name: "update unknown field", method: http.MethodPut, path: "/api/users/" + ada.ID,
			body:       `{"name":"Ada L","password":"x"}`,
			wantStatus: http.StatusBadRequest, wantError: "Validation failed",
			wantDetails: []string{"Invalid fields: password"},
		},
		{name: "update", method: http.MethodPut, path: "/api/users/" + ada.ID, body: `{"department":"CS"}`, wantStatus: http.StatusOK},
		{name: "stats", method: http.MethodGet, path: "/api/users/stats/overview", wantStatus: http.StatusOK},
		{name: "login wrong password", method: http.MethodPost, path: "/api/auth/login", body: `{"email":"ada@college.edu","password":"nope12"}`, wantStatus: http.StatusUnauthorized, wantError: "Invalid email or password"},
		{name: "login", method: http.MethodPost, path: "/api/auth/login", body: `{"email":"ada@college.edu","password":"secret123"}`, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body)
			}
			if tt.wantError == "" {
				return
			}
			got := decode[ErrorResponse](t, w)
			if got.Error != tt.wantError {
				t.Errorf("error = %q, want %q", got.Error, tt.wantError)
			}
			if tt.wantDetails != nil && !slices.Equal(got.Details, tt.wantDetails) {
				t.Errorf("details = %v, want %v", got.Details, tt.wantDetails)
			}
		})
	}

	w = do(t, router, http.MethodGet, "/api/users/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("export Content-Type = %q", ct)
	}

	w = do(t, router, http.MethodDelete, "/api/users/"+ada.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	if got := decode[MessageResponse](t, w); got.Message != "User deleted successfully" {
		t.Errorf("delete message = %q", got.Message)
	}
}

func TestDashboardRoutes(t *testing.T) {
	router := newTestRouter(t)
	for _, body := range []string{
		`{"name":"Ada","email":"ada@college.edu","password":"secret123","role":"student","department":"CS","year":1}`,
		`{"name":"Bob","email":"bob@college.edu","password":"secret123","role":"faculty","department":"EE"}`,
	} {
		if w := do(t, router, http.MethodPost, "/api/users", body); w.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", w.Code, w.Body)
		}
	}

	for _, path := range []string{
		"/api/dashboard/stats",
		"/api/dashboard/activity?limit=500",
		"/api/dashboard/department-breakdown",
		"/api/dashboard/system-health",
	} {
		t.Run(path, func(t *testing.T) {
			if w := do(t, router, http.MethodGet, path, ""); w.Code != http.StatusOK {
				t.Errorf("status = %d, body %s", w.Code, w.Body)
			}
		})
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLen    int
	}{
		{name: "group by role", body: `[{"$group":{"_id":"$role","count":{"$sum":1}}}]`, wantStatus: http.StatusOK, wantLen: 2},
		{name: "match", body: `[{"$match":{"department":"CS"}}]`, wantStatus: http.StatusOK, wantLen: 1},
		{name: "unknown stage", body: `[{"$lookup":{}}]`, wantStatus: http.StatusBadRequest},
		{name: "not an array", body: `{"$match":{}}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/dashboard/aggregate", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			docs := decode[[]map[string]any](t, w)
			if len(docs) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(docs), tt.wantLen)
			}
			for _, d := range docs {
				if _, ok := d["passwordHash"]; ok {
					t.Errorf("aggregate leaked a password hash: %v", d)
				}
			}
		})
	}
}
