package graph

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-socialgraph/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func newGraphApp(t *testing.T, usernames ...string) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t, usernames...)
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	RegisterRoutes(app, f.graph)
	return app, f
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func TestGraphHandlersFollowFlow(t *testing.T) {
	stepClock(t)
	app, f := newGraphApp(t, "alice", "bob", "carol")

	status, body := doJSON(t, app, http.MethodPost, "/user/follow", FollowRequest{FollowerID: 1, FollowedID: 2})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("follow: %d %v", status, body)
	}

	// query parameters are accepted too
	status, _ = doJSON(t, app, http.MethodPost, "/user/follow?follower_id=3&followed_id=2", nil)
	if status != http.StatusOK {
		t.Fatalf("follow via query: %d", status)
	}

	status, body = doJSON(t, app, http.MethodPost, "/user/follow", FollowRequest{FollowerID: 1, FollowedID: 2})
	if status != http.StatusConflict || body["success"] != false || body["error"] != "conflict" {
		t.Fatalf("expected conflict: %d %v", status, body)
	}

	status, body = doJSON(t, app, http.MethodGet, "/users/2/followers?start=0&stop=0", nil)
	if status != http.StatusOK {
		t.Fatalf("followers: %d", status)
	}
	followers, _ := body["followers"].([]any)
	if body["count"] != float64(1) || len(followers) != 1 || followers[0] != float64(1) {
		t.Fatalf("unexpected followers body %v", body)
	}
	if body["start"] != float64(0) || body["stop"] != float64(0) || body["user_id"] != float64(2) {
		t.Fatalf("unexpected window %v", body)
	}

	status, body = doJSON(t, app, http.MethodGet, "/users/1/following", nil)
	following, _ := body["following"].([]any)
	if status != http.StatusOK || len(following) != 1 || body["stop"] != float64(10) {
		t.Fatalf("unexpected following %d %v", status, body)
	}

	status, body = doJSON(t, app, http.MethodGet, "/users/3/followers", nil)
	if status != http.StatusOK || body["count"] != float64(0) {
		t.Fatalf("expected empty list: %d %v", status, body)
	}
	if list, ok := body["followers"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty followers array, got %v", body["followers"])
	}

	status, body = doJSON(t, app, http.MethodPost, "/user/unfollow", FollowRequest{FollowerID: 1, FollowedID: 2})
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("unfollow: %d %v", status, body)
	}
	status, _ = doJSON(t, app, http.MethodPost, "/user/unfollow", FollowRequest{FollowerID: 1, FollowedID: 2})
	if status != http.StatusConflict {
		t.Fatalf("expected conflict on second unfollow: %d", status)
	}

	if c := f.counts(t, 2); c.FollowerCount != 1 || !c.Consistent() {
		t.Fatalf("unexpected counters %+v", c)
	}
}

func TestGraphHandlersFailures(t *testing.T) {
	app, _ := newGraphApp(t, "alice")

	status, _ := doJSON(t, app, http.MethodPost, "/user/follow", map[string]any{})
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", status)
	}

	status, body := doJSON(t, app, http.MethodPost, "/user/follow", FollowRequest{FollowerID: 1, FollowedID: 5})
	if status != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("expected not found, got %d %v", status, body)
	}

	status, _ = doJSON(t, app, http.MethodPost, "/user/unfollow", FollowRequest{FollowerID: 5, FollowedID: 1})
	if status != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", status)
	}

	status, _ = doJSON(t, app, http.MethodPost, "/user/follow", FollowRequest{FollowerID: 1, FollowedID: 1})
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request for self follow, got %d", status)
	}

	status, _ = doJSON(t, app, http.MethodGet, "/users/9/followers", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", status)
	}

	status, _ = doJSON(t, app, http.MethodGet, "/users/1/following?start=-2", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", status)
	}

	status, _ = doJSON(t, app, http.MethodGet, "/users/x/following", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", status)
	}
}
