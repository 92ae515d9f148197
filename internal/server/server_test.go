package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-socialgraph/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0", BcryptCost: bcrypt.MinCost}, rdb, nil)
	t.Cleanup(func() {
		_ = s.Stream.Close()
		_ = rdb.Close()
	})
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthRoute(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestSocialFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := do(t, s, http.MethodPost, "/user/", map[string]string{"username": "alice", "password": "pw1"})
	if status != http.StatusCreated || body["user_id"] != float64(1) {
		t.Fatalf("create alice: %d %v", status, body)
	}
	status, body = do(t, s, http.MethodPost, "/user/", map[string]string{"username": "bob", "password": "pw2"})
	if status != http.StatusCreated || body["user_id"] != float64(2) {
		t.Fatalf("create bob: %d %v", status, body)
	}
	status, body = do(t, s, http.MethodPost, "/user/", map[string]string{"username": "bob", "password": "other"})
	if status != http.StatusConflict || body["error"] != "conflict" {
		t.Fatalf("duplicate bob: %d %v", status, body)
	}

	status, _ = do(t, s, http.MethodPost, "/user/follow", map[string]int64{"follower_id": 1, "followed_id": 2})
	if status != http.StatusOK {
		t.Fatalf("follow: %d", status)
	}
	status, _ = do(t, s, http.MethodPost, "/user/follow", map[string]int64{"follower_id": 1, "followed_id": 2})
	if status != http.StatusConflict {
		t.Fatalf("second follow: %d", status)
	}

	status, body = do(t, s, http.MethodGet, "/user/2", nil)
	if status != http.StatusOK || body["follower_count"] != float64(1) || body["username"] != "bob" {
		t.Fatalf("get bob: %d %v", status, body)
	}
	if _, leaked := body["password"]; leaked {
		t.Fatalf("password hash leaked: %v", body)
	}
	followers, _ := body["followers"].([]any)
	if len(followers) != 1 || followers[0] != float64(1) {
		t.Fatalf("bob followers: %v", body["followers"])
	}

	status, body = do(t, s, http.MethodGet, "/users/1/following", nil)
	if status != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("alice following: %d %v", status, body)
	}

	status, body = do(t, s, http.MethodPost, "/post/", map[string]any{"author_id": 2, "content": "hello"})
	if status != http.StatusCreated || body["post_id"] != float64(1) {
		t.Fatalf("create post: %d %v", status, body)
	}
	status, body = do(t, s, http.MethodGet, "/users/2/posts", nil)
	if status != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("bob posts: %d %v", status, body)
	}

	status, _ = do(t, s, http.MethodPost, "/user/unfollow?follower_id=1&followed_id=2", nil)
	if status != http.StatusOK {
		t.Fatalf("unfollow: %d", status)
	}
	status, body = do(t, s, http.MethodGet, "/user/by-username?username=bob", nil)
	if status != http.StatusOK || body["follower_count"] != float64(0) {
		t.Fatalf("bob after unfollow: %d %v", status, body)
	}

	status, body = do(t, s, http.MethodPost, "/user/authenticate", map[string]any{"user_id": 1, "password": "pw1"})
	if status != http.StatusOK || body["success"] != true || body["token"] == "" {
		t.Fatalf("authenticate: %d %v", status, body)
	}
	status, body = do(t, s, http.MethodPost, "/user/authenticate", map[string]any{"user_id": 1, "password": "nope"})
	if status != http.StatusUnauthorized || body["success"] != false {
		t.Fatalf("bad password: %d %v", status, body)
	}
}

func TestMissingResources(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/user/9", "/users/9/followers", "/users/9/posts", "/post/9"} {
		status, body := do(t, s, http.MethodGet, path, nil)
		if status != http.StatusNotFound || body["success"] != false || body["error"] != "not_found" {
			t.Fatalf("%s: %d %v", path, status, body)
		}
	}
	status, _ := do(t, s, http.MethodPost, "/user/follow", map[string]int64{"follower_id": 1, "followed_id": 2})
	if status != http.StatusNotFound {
		t.Fatalf("follow missing users: %d", status)
	}
}

func TestStreamRequiresToken(t *testing.T) {
	s := newTestServer(t)

	status, _ := do(t, s, http.MethodGet, "/stream/ws/1", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}
