package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"school_asset_server/internal/models"
	"school_asset_server/internal/tenant"

	"github.com/gorilla/websocket"
)

type fakeDirectory map[string]*models.Tenant

func (d fakeDirectory) Lookup(ctx context.Context, id string) (*models.Tenant, error) {
	return d[id], nil
}

func memoryTenant(id string) tenant.Config {
	return tenant.Config{DBType: tenant.DBTypeMemory, Sheet: tenant.SheetConfig{SpreadsheetID: id}}
}

func newTestServer(t *testing.T, dir tenant.Directory) *Server {
	t.Helper()
	registry := tenant.NewRegistry(tenant.MemoryFactory)
	s := NewServer(Options{
		Registry:     registry,
		Resolver:     tenant.NewResolver(registry, dir, nil),
		Codec:        tenant.NewCodec("test-secret"),
		CookieName:   "asset_db",
		TenantHeader: "X-Tenant-ID",
	})
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

type requestOption func(*http.Request)

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func withTenant(id string) requestOption {
	return func(r *http.Request) { r.Header.Set("X-Tenant-ID", id) }
}

func perform(t *testing.T, s *Server, method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "asset_db" {
			return c
		}
	}
	t.Fatalf("Expected asset_db cookie in response")
	return nil
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := perform(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %s", w.Body.String())
	}
}

func TestUnconfiguredWorkspace(t *testing.T) {
	s := newTestServer(t, nil)

	w := perform(t, s, http.MethodGet, "/api/v1/devices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for unconfigured read, got %d", w.Code)
	}
	body := decode(t, w)
	if body["code"] != "NOT_CONFIGURED" || body["success"] != false {
		t.Errorf("Expected NOT_CONFIGURED empty state, got %v", body)
	}

	w = perform(t, s, http.MethodPost, "/api/v1/devices", models.Device{Name: "Projector"})
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for unconfigured write, got %d", w.Code)
	}
	if decode(t, w)["code"] != "NOT_CONFIGURED" {
		t.Errorf("Expected NOT_CONFIGURED code, got %s", w.Body.String())
	}
}

func TestConfigCookieFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := perform(t, s, http.MethodPut, "/api/v1/config", memoryTenant("school-a"))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Errorf("Expected HttpOnly cookie")
	}

	w = perform(t, s, http.MethodGet, "/api/v1/config", nil, withCookie(cookie))
	status := decode(t, w)["data"].(map[string]interface{})
	if status["configured"] != true || status["source"] != "cookie" {
		t.Errorf("Expected cookie-configured workspace, got %v", status)
	}

	w = perform(t, s, http.MethodPost, "/api/v1/devices", models.Device{Name: "Projector", Quantity: 2}, withCookie(cookie))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	w = perform(t, s, http.MethodGet, "/api/v1/devices", nil, withCookie(cookie))
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Errorf("Expected 1 device, got %v", got)
	}

	w = perform(t, s, http.MethodDelete, "/api/v1/config", nil, withCookie(cookie))
	if c := sessionCookie(t, w); c.MaxAge >= 0 {
		t.Errorf("Expected cookie to be cleared, got MaxAge %d", c.MaxAge)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	s := newTestServer(t, nil)
	w := perform(t, s, http.MethodPut, "/api/v1/config", tenant.Config{DBType: tenant.DBTypeSheets})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "asset_db" {
			t.Errorf("Expected no cookie for invalid config")
		}
	}
}

func TestTamperedCookieIsIgnored(t *testing.T) {
	s := newTestServer(t, nil)
	w := perform(t, s, http.MethodGet, "/api/v1/devices", nil, withCookie(&http.Cookie{Name: "asset_db", Value: "not-a-sealed-value"}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decode(t, w)["code"] != "NOT_CONFIGURED" {
		t.Errorf("Expected unconfigured workspace, got %s", w.Body.String())
	}
	if c := sessionCookie(t, w); c.MaxAge >= 0 {
		t.Errorf("Expected bad cookie to be cleared")
	}
}

func TestTenantHeaderIsolation(t *testing.T) {
	dir := fakeDirectory{
		"school-a": memoryTenant("a").ToTenant("school-a", "A"),
		"school-b": memoryTenant("b").ToTenant("school-b", "B"),
	}
	s := newTestServer(t, dir)

	w := perform(t, s, http.MethodPost, "/api/v1/devices", models.Device{Name: "Laptop"}, withTenant("school-a"))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	w = perform(t, s, http.MethodGet, "/api/v1/devices", nil, withTenant("school-b"))
	if got := decode(t, w)["count"]; got != nil {
		t.Errorf("Expected no devices in school-b, got %v", got)
	}
	w = perform(t, s, http.MethodGet, "/api/v1/devices", nil, withTenant("school-a"))
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Errorf("Expected 1 device in school-a, got %v", got)
	}
}

func TestDeviceImportEndpoint(t *testing.T) {
	dir := fakeDirectory{"school": memoryTenant("imp").ToTenant("school", "S")}
	s := newTestServer(t, dir)
	as := withTenant("school")

	w := perform(t, s, http.MethodPost, "/api/v1/devices/import", map[string]interface{}{
		"rows": []map[string]interface{}{
			{"名称": "Projector", "数量": "3", "設置場所": "Room A"},
			{"name": "Speaker", "quantity": 1},
		},
	}, as)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode(t, w)["count"]; got != float64(2) {
		t.Errorf("Expected 2 imported devices, got %v", got)
	}

	w = perform(t, s, http.MethodGet, "/api/v1/instances", nil, as)
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Errorf("Expected 1 instance from the install location column, got %v", got)
	}

	w = perform(t, s, http.MethodPost, "/api/v1/devices/import", map[string]interface{}{
		"rows": []map[string]interface{}{{"name": "Tablet", "数量": "many"}},
	}, as)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a non-numeric quantity, got %d", w.Code)
	}
}

func TestDeviceEndpoints(t *testing.T) {
	dir := fakeDirectory{"school": memoryTenant("s").ToTenant("school", "S")}
	s := newTestServer(t, dir)
	as := withTenant("school")

	perform(t, s, http.MethodPost, "/api/v1/devices", models.Device{ID: "D1", Name: "Projector", Quantity: 3}, as)

	w := perform(t, s, http.MethodPatch, "/api/v1/devices/D1", map[string]interface{}{"installLocation": "Room A", "quantity": 2}, as)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	secondary := decode(t, w)["secondary"].([]interface{})
	step := secondary[0].(map[string]interface{})
	if step["step"] != "install_location" || step["success"] != true {
		t.Errorf("Expected successful install_location step, got %v", step)
	}

	w = perform(t, s, http.MethodGet, "/api/v1/devices/D1/instances", nil, as)
	if got := decode(t, w)["count"]; got != float64(1) {
		t.Errorf("Expected 1 instance, got %v", got)
	}

	w = perform(t, s, http.MethodPatch, "/api/v1/devices/missing", map[string]interface{}{"name": "x"}, as)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = perform(t, s, http.MethodPut, "/api/v1/devices/D1/distribution", map[string]interface{}{
		"distribution": []map[string]interface{}{{"locationName": "Room A", "quantity": 2}, {"locationName": "Lab", "quantity": 1}},
	}, as)
	if w.Code != http.StatusOK || !strings.Contains(decode(t, w)["message"].(string), "3 of 2") {
		t.Errorf("Expected saved distribution with mismatch note, got %d: %s", w.Code, w.Body.String())
	}

	w = perform(t, s, http.MethodDelete, "/api/v1/devices", nil, as)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without confirmation, got %d", w.Code)
	}
	w = perform(t, s, http.MethodDelete, "/api/v1/devices?confirm=true", nil, as)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with confirmation, got %d", w.Code)
	}
}

func TestRequestValidation(t *testing.T) {
	dir := fakeDirectory{"school": memoryTenant("s").ToTenant("school", "S")}
	s := newTestServer(t, dir)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", strings.NewReader("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Tenant-ID", "school")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected status 415, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/devices/bulk", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "school")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed JSON, got %d", w.Code)
	}
}

func TestLocationAndMapEndpoints(t *testing.T) {
	dir := fakeDirectory{"school": memoryTenant("s").ToTenant("school", "S")}
	s := newTestServer(t, dir)
	as := withTenant("school")

	w := perform(t, s, http.MethodPut, "/api/v1/maps/floor1", models.MapConfiguration{
		Image: "data:image/png;base64,AAAA",
		Zones: []models.Zone{{ID: "Z1", Name: "Library", X: 10, Y: 10, Width: 20, Height: 20}},
	}, as)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = perform(t, s, http.MethodPut, "/api/v1/locations/Z1/name", map[string]string{"name": "Media Center"}, as)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = perform(t, s, http.MethodGet, "/api/v1/maps/floor1", nil, as)
	data := decode(t, w)["data"].(map[string]interface{})
	zones := data["zones"].([]interface{})
	if len(zones) != 1 || zones[0].(map[string]interface{})["name"] != "Media Center" {
		t.Errorf("Expected renamed zone, got %v", zones)
	}

	w = perform(t, s, http.MethodPost, "/api/v1/maps/floor1/detected-zones", map[string]interface{}{
		"zones": []models.Zone{{Name: "dup", X: 10.2, Y: 10.2, Width: 20, Height: 20}},
	}, as)
	result := decode(t, w)["data"].(map[string]interface{})
	if result["skipped"] != float64(1) {
		t.Errorf("Expected the duplicate to be skipped, got %v", result)
	}
}

func TestWebSocketNoticesStayInTenant(t *testing.T) {
	dir := fakeDirectory{
		"school-a": memoryTenant("a").ToTenant("school-a", "A"),
		"school-b": memoryTenant("b").ToTenant("school-b", "B"),
	}
	s := newTestServer(t, dir)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	dial := func(id string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"X-Tenant-ID": {id}})
		if err != nil {
			t.Fatalf("Failed to dial websocket: %v", err)
		}
		return conn
	}
	connA := dial("school-a")
	defer connA.Close()
	connB := dial("school-b")
	defer connB.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub().ClientCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := s.Hub().ClientCount(); n != 2 {
		t.Fatalf("Expected 2 websocket clients, got %d", n)
	}

	body, _ := json.Marshal(models.Software{Name: "Scratch"})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/software", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "school-a")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WebSocketMessage
	if err := connA.ReadJSON(&msg); err != nil {
		t.Fatalf("Expected a notice on school-a: %v", err)
	}
	notice := msg.Data.(map[string]interface{})
	if msg.Type != "data_changed" || notice["entity"] != "software" || notice["action"] != "created" {
		t.Errorf("Expected software created notice, got %+v", msg)
	}

	connB.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := connB.ReadJSON(&msg); err == nil {
		t.Errorf("Expected no notice on school-b, got %+v", msg)
	}
}
