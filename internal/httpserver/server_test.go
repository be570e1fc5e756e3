package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderbuddy/internal/config"
	"orderbuddy/internal/engine"
	"orderbuddy/internal/geo"
	"orderbuddy/internal/testutil"
	"orderbuddy/pkg/logger"
	"orderbuddy/repository"
)

func newTestServer(t *testing.T, name string) *httptest.Server {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.HTTP.RateLimit = "1000-S"
	cfg.Matching.DefaultRadiusMeters = 3000
	cfg.Matching.MaxRadiusMeters = 50000

	users := repository.NewUserRepository(d)
	catalog := engine.NewOrderCatalog(repository.NewOrderRepository(d), geo.NewIndex(), logger.Nop())
	ledger := engine.NewRequestLedger(repository.NewRequestRepository(d), users, catalog, logger.Nop())
	view := engine.NewConnectionView(repository.NewConnectionRepository(d), users, logger.Nop())

	router, err := New(cfg, logger.Nop(), users, catalog, ledger, view).Router()
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		testutil.WithBearer(req, token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		out = nil
	}
	return resp, out
}

func register(t *testing.T, ts *httptest.Server, name, email string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "hunter22",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", name, resp.StatusCode, body)
	}
	tok, _ := body["token"].(string)
	if tok == "" {
		t.Fatalf("register %s: no token in %v", name, body)
	}
	return tok
}

func TestAuth_RegisterLoginAndRejects(t *testing.T) {
	ts := newTestServer(t, "http_auth")

	register(t, ts, "alice", "alice@example.com")

	// Duplicate email.
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/auth/register", "", map[string]any{
		"name": "alice2", "email": "alice@example.com", "password": "hunter22",
	})
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "INVALID_INPUT" {
		t.Fatalf("duplicate email: status %d body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK || body["token"] == "" {
		t.Fatalf("login: status %d body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/auth/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "UNAUTHENTICATED" {
		t.Fatalf("bad password: status %d body %v", resp.StatusCode, body)
	}

	// Protected route without a token.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/orders/my-orders", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || body["code"] != "UNAUTHENTICATED" {
		t.Fatalf("no token: status %d body %v", resp.StatusCode, body)
	}
}

func orderPayload(lat, lon float64) map[string]any {
	return map[string]any{
		"restaurant":   "Truffles",
		"items":        []string{"burger", "fries"},
		"deliveryTime": "30 mins",
		"location": map[string]any{
			"coordinates": []float64{lon, lat},
			"address":     "St Marks Rd",
		},
	}
}

func TestOrders_CreateAndNearbyWireFormat(t *testing.T) {
	ts := newTestServer(t, "http_orders")
	alice := register(t, ts, "alice", "alice@example.com")
	bob := register(t, ts, "bob", "bob@example.com")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/orders", alice, orderPayload(12.97, 77.59))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: status %d body %v", resp.StatusCode, body)
	}
	order, _ := body["order"].(map[string]any)
	if order["restaurant"] != "Truffles" || order["deliveryTime"] != "30 mins" {
		t.Fatalf("order wire fields: %v", order)
	}
	loc, _ := order["location"].(map[string]any)
	coords, _ := loc["coordinates"].([]any)
	if len(coords) != 2 || coords[0].(float64) != 77.59 || coords[1].(float64) != 12.97 {
		t.Fatalf("coordinates must be [lon, lat]: %v", loc)
	}
	if loc["address"] != "St Marks Rd" {
		t.Fatalf("address missing: %v", loc)
	}

	// Nearby from ~150m away.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/orders?lat=12.971&lng=77.591", bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby: status %d body %v", resp.StatusCode, body)
	}
	orders, _ := body["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("expected 1 nearby order, got %v", body)
	}
	first, _ := orders[0].(map[string]any)
	dist, _ := first["distance"].(float64)
	if dist < 140 || dist > 170 {
		t.Fatalf("distance should be ~150m, got %v", dist)
	}
	if first["sharedByName"] != "alice" {
		t.Fatalf("owner name not attached: %v", first)
	}

	// A 50m radius excludes it.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/orders?lat=12.971&lng=77.591&radius=50", bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("nearby small radius: status %d", resp.StatusCode)
	}
	if orders, _ := body["orders"].([]any); len(orders) != 0 {
		t.Fatalf("expected no orders within 50m, got %v", body)
	}

	// my-orders only returns the caller's orders.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/orders/my-orders", bob, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("my-orders: status %d", resp.StatusCode)
	}
	if orders, _ := body["orders"].([]any); len(orders) != 0 {
		t.Fatalf("bob has no orders, got %v", body)
	}
}

func TestBuddyFlow_EndToEnd(t *testing.T) {
	ts := newTestServer(t, "http_buddy")
	alice := register(t, ts, "alice", "alice@example.com")
	bob := register(t, ts, "bob", "bob@example.com")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/orders", alice, orderPayload(12.97, 77.59))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: %d %v", resp.StatusCode, body)
	}
	orderID := int64(body["order"].(map[string]any)["id"].(float64))

	// Owner cannot buddy up with their own order.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-request/%d", ts.URL, orderID), alice, nil)
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "SELF_MATCH" {
		t.Fatalf("self match: status %d body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-request/%d", ts.URL, orderID), bob, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send request: %d %v", resp.StatusCode, body)
	}
	reqBody, _ := body["buddyRequest"].(map[string]any)
	if reqBody["status"] != "pending" {
		t.Fatalf("status string must be pending: %v", reqBody)
	}
	requestID := int64(reqBody["id"].(float64))

	// Duplicate while pending.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-request/%d", ts.URL, orderID), bob, nil)
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "DUPLICATE_PENDING" {
		t.Fatalf("duplicate: status %d body %v", resp.StatusCode, body)
	}

	// Inbox shows the sender's name in the legacy shape.
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/orders/buddy-requests", nil)
	testutil.WithBearer(req, alice)
	rawResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	var inbox []map[string]any
	if err := json.NewDecoder(rawResp.Body).Decode(&inbox); err != nil {
		t.Fatal(err)
	}
	rawResp.Body.Close()
	if len(inbox) != 1 || inbox[0]["senderName"] != "bob" || inbox[0]["_id"] == nil {
		t.Fatalf("inbox shape: %v", inbox)
	}

	// Only the receiver may resolve.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-requests/%d/accept", ts.URL, requestID), bob, nil)
	if resp.StatusCode != http.StatusForbidden || body["code"] != "FORBIDDEN" {
		t.Fatalf("sender accept: status %d body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-requests/%d/accept", ts.URL, requestID), alice,
		map[string]any{"contact": map[string]any{"email": "a@b.com"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: %d %v", resp.StatusCode, body)
	}
	if body["buddyRequest"].(map[string]any)["status"] != "accepted" {
		t.Fatalf("status string must be accepted: %v", body)
	}

	// Second accept is a conflict.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-requests/%d/accept", ts.URL, requestID), alice, nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "ALREADY_RESOLVED" {
		t.Fatalf("double accept: status %d body %v", resp.StatusCode, body)
	}

	// Both sides see each other in connections, with the contact the peer shared.
	checkConnections(t, ts, alice, "bob", "bob@example.com")
	checkConnections(t, ts, bob, "alice", "a@b.com")
}

func checkConnections(t *testing.T, ts *httptest.Server, token, wantPeer, wantContact string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/connections", nil)
	if err != nil {
		t.Fatal(err)
	}
	testutil.WithBearer(req, token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var peers []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&peers); err != nil {
		t.Fatal(err)
	}
	if len(peers) != 1 || peers[0]["name"] != wantPeer {
		t.Fatalf("connections: want peer %s, got %v", wantPeer, peers)
	}
	contact, _ := peers[0]["contact"].(map[string]any)
	if contact == nil || contact["email"] != wantContact {
		t.Fatalf("peer contact: want %s, got %v", wantContact, peers)
	}
}

func TestBuddyFlow_RejectAllowsRetry(t *testing.T) {
	ts := newTestServer(t, "http_reject")
	alice := register(t, ts, "alice", "alice@example.com")
	bob := register(t, ts, "bob", "bob@example.com")

	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/orders", alice, orderPayload(12.97, 77.59))
	orderID := int64(body["order"].(map[string]any)["id"].(float64))

	_, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-request/%d", ts.URL, orderID), bob, nil)
	requestID := int64(body["buddyRequest"].(map[string]any)["id"].(float64))

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-requests/%d/reject", ts.URL, requestID), alice, nil)
	if resp.StatusCode != http.StatusOK || body["buddyRequest"].(map[string]any)["status"] != "rejected" {
		t.Fatalf("reject: status %d body %v", resp.StatusCode, body)
	}

	// Accept after reject conflicts, and no connection appears.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-requests/%d/accept", ts.URL, requestID), alice, nil)
	if resp.StatusCode != http.StatusConflict || body["code"] != "ALREADY_RESOLVED" {
		t.Fatalf("accept after reject: status %d body %v", resp.StatusCode, body)
	}

	// Rejected history does not block a new request.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/orders/buddy-request/%d", ts.URL, orderID), bob, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("retry after reject: status %d body %v", resp.StatusCode, body)
	}
}

func TestOrders_UnknownOrderIs404(t *testing.T) {
	ts := newTestServer(t, "http_404")
	bob := register(t, ts, "bob", "bob@example.com")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/orders/buddy-request/9999", bob, nil)
	if resp.StatusCode != http.StatusNotFound || body["code"] != "NOT_FOUND" {
		t.Fatalf("unknown order: status %d body %v", resp.StatusCode, body)
	}
}

func TestRouter_CORSHeaders(t *testing.T) {
	ts := newTestServer(t, "http_cors")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://frontend.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want *", got)
	}

	// Preflight for a cross-origin POST with a bearer token.
	req, err = http.NewRequest(http.MethodOptions, ts.URL+"/api/orders", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://frontend.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("preflight Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != http.MethodPost {
		t.Fatalf("preflight Access-Control-Allow-Methods = %q, want POST", got)
	}
}
