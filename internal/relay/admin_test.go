package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/tcprelay/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func serveAdmin(t *testing.T, a *Admin, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	var body map[string]any
	if path != "/metrics" {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s body: %v", path, err)
		}
	}
	return rr, body
}

func TestAdminHealthAndReady(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	s := NewServer(DefaultConfig())
	a := NewAdmin(s, "127.0.0.1:0", nil)

	rr, body := serveAdmin(t, a, "/health")
	if rr.Code != http.StatusOK || body["status"] != "ok" || body["version"] != Version {
		t.Fatalf("unexpected health: %d %#v", rr.Code, body)
	}

	rr, body = serveAdmin(t, a, "/ready")
	if rr.Code != http.StatusServiceUnavailable || body["ready"] != false {
		t.Fatalf("expected not ready before serve: %d %#v", rr.Code, body)
	}
}

func TestAdminPeersReflectsServer(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	s, _ := startServer(t, nil)
	_ = dial(t, s)
	_ = dial(t, s)
	waitPeers(t, s, 2)

	a := NewAdmin(s, "", []string{"http://example.test"})
	rr, body := serveAdmin(t, a, "/peers")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if body["count"] != float64(2) {
		t.Fatalf("unexpected peer count: %#v", body["count"])
	}

	rr, body = serveAdmin(t, a, "/ready")
	if rr.Code != http.StatusOK || body["ready"] != true || body["listen"] == "" {
		t.Fatalf("expected ready while serving: %d %#v", rr.Code, body)
	}
}

func TestAdminMetrics(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	a := NewAdmin(NewServer(DefaultConfig()), "", nil)
	rr, _ := serveAdmin(t, a, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status: %d", rr.Code)
	}
}

func TestNormalizeOrigins(t *testing.T) {
	if got := normalizeOrigins([]string{" ", ""}); len(got) != 1 || got[0] != "http://localhost:3000" {
		t.Fatalf("unexpected fallback origins: %+v", got)
	}
	if got := normalizeOrigins([]string{" http://a.test "}); len(got) != 1 || got[0] != "http://a.test" {
		t.Fatalf("unexpected origins: %+v", got)
	}
}
