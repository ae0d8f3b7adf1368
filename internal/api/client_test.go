package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func TestClientDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications/unread-count" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]int{"count": 4},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	count, err := c.NotificationUnreadCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}
}

func TestClientSurfacesBusinessError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error": map[string]interface{}{
				"code":    "VALIDATION_ERROR",
				"message": "Request validation failed",
				"details": map[string]string{"Email": "failed on email"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Notifications(context.Background())

	apiErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if apiErr.Details["Email"] != "failed on email" {
		t.Fatalf("expected field details for form binding, got %v", apiErr.Details)
	}
}

func TestClientParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Notifications(context.Background())

	apiErr, ok := err.(*Error)
	if !ok || apiErr.Code != CodeParseError {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // unreachable on purpose

	c := NewClient(server.URL)
	_, err := c.Notifications(context.Background())

	apiErr, ok := err.(*Error)
	if !ok || apiErr.Code != CodeNetworkError {
		t.Fatalf("expected NETWORK_ERROR, got %v", err)
	}
}

// Concurrent expired-token requests must trigger exactly one refresh call;
// every caller retries with the rotated token and succeeds.
func TestClientDeduplicatesConcurrentRefresh(t *testing.T) {
	var refreshCalls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			atomic.AddInt64(&refreshCalls, 1)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data":    map[string]string{"token": "fresh", "refreshToken": "r2"},
			})
		case "/notifications/unread-count":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error":   map[string]string{"code": "TOKEN_EXPIRED", "message": "expired"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": true,
				"data":    map[string]int{"count": 2},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.SetTokens("stale", "r1")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	counts := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i], errs[i] = c.NotificationUnreadCount(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if counts[i] != 2 {
			t.Fatalf("caller %d got count %d", i, counts[i])
		}
	}
	if got := atomic.LoadInt64(&refreshCalls); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
}

func TestClientFailedRefreshPropagatesOriginal401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "INVALID_REFRESH_TOKEN", "message": "nope"},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "TOKEN_EXPIRED", "message": "expired"},
			})
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.SetTokens("stale", "r1")

	_, err := c.Notifications(context.Background())
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Code != "TOKEN_EXPIRED" {
		t.Fatalf("expected the original 401 error, got %v", err)
	}
}

// A rejected refresh means the session is gone. The loss callback fires once;
// transport failures on the refresh endpoint do not trip it.
func TestClientRejectedRefreshSignalsSessionLoss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "INVALID_REFRESH_TOKEN", "message": "nope"},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "TOKEN_EXPIRED", "message": "expired"},
			})
		}
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.SetTokens("stale", "r1")

	var lost int64
	c.OnSessionLoss(func() { atomic.AddInt64(&lost, 1) })

	if _, err := c.Notifications(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt64(&lost); got != 1 {
		t.Fatalf("expected one session-loss signal, got %d", got)
	}
}

func TestClientUnreachableRefreshDoesNotSignalSessionLoss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			// Drop the connection so the refresh fails in transit, not with
			// a server verdict.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Errorf("response writer is not hijackable")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "TOKEN_EXPIRED", "message": "expired"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	c.SetTokens("stale", "r1")

	var lost int64
	c.OnSessionLoss(func() { atomic.AddInt64(&lost, 1) })

	if _, err := c.Notifications(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt64(&lost); got != 0 {
		t.Fatalf("transport failure must not end the session, got %d signals", got)
	}
}
