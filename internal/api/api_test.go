package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/notify"
	"github.com/erazemk/zaloga/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server   *httptest.Server
	sessions *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	hub := notify.NewHub()
	t.Cleanup(func() { hub.Close() })

	ctx := context.Background()
	for _, u := range []struct{ name, role string }{
		{"ADMIN", model.RoleAdmin},
		{"STAFF", model.RoleStaff},
	} {
		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
		if _, err := store.CreateUser(ctx, database, u.name, string(hash), u.role); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	sessions := auth.NewManager(database, testJWTSecret)
	router := NewRouter(sessions, inventory.NewService(database, hub), metrics.New())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, sessions: sessions}
}

func (e *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(e.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Username is case-insensitive on input.
	token := env.login(t, "admin")
	var me model.User
	if code := do(t, "GET", env.server.URL+"/api/auth/me", token, nil, &me); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if me.Username != "ADMIN" || me.Role != model.RoleAdmin {
		t.Errorf("unexpected user: %+v", me)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "STAFF")

	if code := do(t, "POST", env.server.URL+"/api/auth/logout", token, nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := do(t, "GET", env.server.URL+"/api/parts", token, nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", code)
	}
}

func TestItemsAPIQuantityParsing(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ADMIN")
	base := env.server.URL + "/api/machines"

	tests := []struct {
		name     string
		quantity any
		want     int
	}{
		{"number", 7, 7},
		{"numeric string", "4", 4},
		{"unparsable string", "abc", 0},
		{"fraction", 2.5, 0},
		{"missing", nil, 0},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{
				"name":          "Lathe",
				"serial_number": fmt.Sprintf("M-%d", i),
			}
			if tt.quantity != nil {
				body["quantity"] = tt.quantity
			}

			var created model.Item
			if code := do(t, "POST", base, token, body, &created); code != http.StatusCreated {
				t.Fatalf("expected 201, got %d", code)
			}
			if created.Quantity != tt.want {
				t.Errorf("quantity = %d, want %d", created.Quantity, tt.want)
			}
		})
	}
}

func TestItemsAPIFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ADMIN")
	base := env.server.URL + "/api/parts"

	// Create item.
	var created model.Item
	code := do(t, "POST", base, token, map[string]any{
		"name":          "Bearing",
		"serial_number": "SN-1",
		"quantity":      2,
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if created.ID == "" || created.Kind != model.KindPart {
		t.Fatalf("unexpected item: %+v", created)
	}

	// List items.
	var list listResponse
	if code := do(t, "GET", base, token, nil, &list); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(list.Items) != 1 || len(list.LowStock) != 1 {
		t.Errorf("expected 1 item, 1 low stock; got %d, %d", len(list.Items), len(list.LowStock))
	}

	// Update quantity.
	var updated model.Item
	code = do(t, "PUT", base+"/"+created.ID, token, map[string]any{
		"name":          "Bearing",
		"serial_number": "SN-1",
		"quantity":      5,
	}, &updated)
	if code != http.StatusOK || updated.Quantity != 5 {
		t.Fatalf("expected 200 and quantity 5, got %d and %d", code, updated.Quantity)
	}

	do(t, "GET", base, token, nil, &list)
	if len(list.LowStock) != 0 {
		t.Errorf("expected no low stock after update, got %d", len(list.LowStock))
	}

	// Delete without confirmation leaves the item.
	if code := do(t, "DELETE", base+"/"+created.ID, token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400 for unconfirmed delete, got %d", code)
	}
	if code := do(t, "GET", base+"/"+created.ID, token, nil, nil); code != http.StatusOK {
		t.Errorf("expected item to remain, got %d", code)
	}

	if code := do(t, "DELETE", base+"/"+created.ID+"?confirm=true", token, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 for confirmed delete, got %d", code)
	}
	if code := do(t, "GET", base+"/"+created.ID, token, nil, nil); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func TestItemsAPIErrors(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "ADMIN")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing name", "POST", "/api/machines", map[string]any{"serial_number": "M-1"}, http.StatusBadRequest},
		{"bad body", "POST", "/api/machines", "not an object", http.StatusBadRequest},
		{"unknown kind", "GET", "/api/widgets", nil, http.StatusNotFound},
		{"update missing", "PUT", "/api/machines/nope", map[string]any{"name": "X", "serial_number": "Y"}, http.StatusNotFound},
		{"delete missing", "DELETE", "/api/machines/nope?confirm=true", nil, http.StatusNotFound},
		{"negative quantity", "POST", "/api/machines", map[string]any{"name": "X", "serial_number": "Y", "quantity": -1}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if code := do(t, tt.method, env.server.URL+tt.path, token, tt.body, nil); code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, code)
		}
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := http.Get(env.server.URL + "/api/parts")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if code := do(t, "GET", env.server.URL+"/api/parts", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for invalid token, got %d", code)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := newTestEnv(t)
	staffToken := env.login(t, "STAFF")

	// Staff can read.
	if code := do(t, "GET", env.server.URL+"/api/machines", staffToken, nil, nil); code != http.StatusOK {
		t.Errorf("expected 200 for staff listing, got %d", code)
	}

	// Staff should not be able to create items.
	code := do(t, "POST", env.server.URL+"/api/machines", staffToken, map[string]any{
		"name":          "Lathe",
		"serial_number": "M-1",
	}, nil)
	if code != http.StatusForbidden {
		t.Errorf("expected 403 for staff creating item, got %d", code)
	}

	if code := do(t, "DELETE", env.server.URL+"/api/machines/x?confirm=true", staffToken, nil, nil); code != http.StatusForbidden {
		t.Errorf("expected 403 for staff deleting item, got %d", code)
	}
}
