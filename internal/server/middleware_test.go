package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func okHandler(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	})
}

func serve(h http.Handler, method, target string, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	for _, p := range prepare {
		p(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"propagated", "trace-7f3a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))
			w := serve(h, "GET", "/", func(r *http.Request) {
				if tt.incoming != "" {
					r.Header.Set("X-Request-ID", tt.incoming)
				}
			})

			got := w.Header().Get("X-Request-ID")
			if got == "" || got != seen {
				t.Fatalf("header id %q, context id %q: want equal and non-empty", got, seen)
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("request id = %q, want %q", got, tt.incoming)
			}
		})
	}
}

func TestLoggingMiddleware_PassesStatus(t *testing.T) {
	h := LoggingMiddleware(testLogger(), operationalPaths)(okHandler(http.StatusAccepted))

	for _, path := range []string{"/index.html", "/healthz"} {
		if w := serve(h, "GET", path); w.Code != http.StatusAccepted {
			t.Errorf("%s: status = %d, want %d", path, w.Code, http.StatusAccepted)
		}
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := serve(SecurityHeadersMiddleware(okHandler(http.StatusOK)), "GET", "/")

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy not set")
	}
}

func TestVersionHeaderMiddleware(t *testing.T) {
	w := serve(VersionHeaderMiddleware(okHandler(http.StatusOK)), "GET", "/")
	if v := w.Header().Get("X-Cdndash-Version"); v == "" {
		t.Error("X-Cdndash-Version not set")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	w := serve(RecoveryMiddleware(testLogger())(panicky), "GET", "/nav/getDS")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content-type = %q", ct)
	}

	w = serve(RecoveryMiddleware(testLogger())(okHandler(http.StatusOK)), "GET", "/")
	if w.Code != http.StatusOK {
		t.Errorf("no panic: status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadOnlyMiddleware(t *testing.T) {
	h := ReadOnlyMiddleware(okHandler(http.StatusOK))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		{http.MethodHead, http.StatusOK},
		{http.MethodOptions, http.StatusOK},
		{http.MethodPost, http.StatusMethodNotAllowed},
		{http.MethodPut, http.StatusMethodNotAllowed},
		{http.MethodDelete, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := serve(h, tt.method, "/invalidate")
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want != http.StatusMethodNotAllowed {
				return
			}
			var p Problem
			if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
				t.Fatalf("decode problem: %v", err)
			}
			if p.Instance != "/invalidate" {
				t.Errorf("instance = %q, want /invalidate", p.Instance)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(1, 1, []string{"/healthz"})(okHandler(http.StatusOK))
	from := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.RemoteAddr = ip + ":4711" }
	}

	if w := serve(h, "GET", "/", from("10.1.0.1")); w.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", w.Code)
	}
	if w := serve(h, "GET", "/", from("10.1.0.1")); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	// Separate buckets per client.
	if w := serve(h, "GET", "/", from("10.1.0.2")); w.Code != http.StatusOK {
		t.Errorf("other client: status = %d", w.Code)
	}
	for i := 0; i < 5; i++ {
		if w := serve(h, "GET", "/healthz", from("10.1.0.1")); w.Code != http.StatusOK {
			t.Fatalf("skipped path request %d: status = %d", i, w.Code)
		}
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+">")
				next.ServeHTTP(w, r)
				order = append(order, "<"+name)
			})
		}
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
	})

	serve(Chain(inner, tag("outer"), tag("inner")), "GET", "/")

	want := []string{"outer>", "inner>", "handler", "<inner", "<outer"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"remote addr", "192.0.2.10:5050", "", "192.0.2.10"},
		{"forwarded first hop", "127.0.0.1:5050", "198.51.100.7, 10.0.0.1", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateID_IsUUID(t *testing.T) {
	a, b := generateID(), generateID()
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("generateID() = %q: %v", a, err)
	}
	if a == b {
		t.Error("generated ids collide")
	}
}

func TestRouteLabel(t *testing.T) {
	mux := http.NewServeMux()
	var label string
	mux.HandleFunc("GET /invalidateStatus/{id}", func(_ http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})
	serve(mux, "GET", "/invalidateStatus/1700-42")

	if label != "GET /invalidateStatus/{id}" {
		t.Errorf("routeLabel = %q", label)
	}
	if got := routeLabel(httptest.NewRequest("GET", "/nowhere", http.NoBody)); got != "unmatched" {
		t.Errorf("unrouted label = %q, want unmatched", got)
	}
}

func TestResponseRecorder(t *testing.T) {
	rw := &responseRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	rw.WriteHeader(http.StatusSeeOther)
	rw.WriteHeader(http.StatusNotFound)
	_, _ = rw.Write([]byte("see "))
	_, _ = rw.Write([]byte("other"))

	if rw.status != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rw.status, http.StatusSeeOther)
	}
	if rw.bytes != 9 {
		t.Errorf("bytes = %d, want 9", rw.bytes)
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

func TestLoggingMiddleware_AccessLine(t *testing.T) {
	logger, logs := observedLogger()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /nav/{button}", func(w http.ResponseWriter, r *http.Request) {
		Annotate(r.Context(), zap.String("button", r.PathValue("button")))
		w.WriteHeader(http.StatusSeeOther)
		_, _ = w.Write([]byte("moved"))
	})
	h := Chain(mux, RequestIDMiddleware, LoggingMiddleware(logger, operationalPaths))

	serve(h, "GET", "/nav/getDS?dsSelected=video", func(r *http.Request) {
		r.Header.Set("X-Request-ID", "trace-7f3a")
		r.RemoteAddr = "192.0.2.10:5050"
	})

	entries := logs.FilterMessage("request served").All()
	if len(entries) != 1 {
		t.Fatalf("access lines = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.InfoLevel {
		t.Errorf("level = %s, want info", e.Level)
	}
	fields := e.ContextMap()
	want := map[string]any{
		"method":     "GET",
		"route":      "GET /nav/{button}",
		"path":       "/nav/getDS",
		"status":     int64(http.StatusSeeOther),
		"bytes":      int64(5),
		"client":     "192.0.2.10",
		"request_id": "trace-7f3a",
		"button":     "getDS",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %v (%T), want %v", k, fields[k], fields[k], v)
		}
	}
}

func TestLoggingMiddleware_ServerErrorsWarn(t *testing.T) {
	logger, logs := observedLogger()
	h := LoggingMiddleware(logger, operationalPaths)(okHandler(http.StatusBadGateway))

	serve(h, "GET", "/invalidateStatus/1700-42")

	entries := logs.FilterMessage("request served").All()
	if len(entries) != 1 {
		t.Fatalf("access lines = %d, want 1", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %s, want warn", entries[0].Level)
	}
	if got := entries[0].ContextMap()["route"]; got != "unmatched" {
		t.Errorf("route = %v, want unmatched", got)
	}
}

func TestLoggingMiddleware_SkipsOperationalPaths(t *testing.T) {
	logger, logs := observedLogger()
	h := LoggingMiddleware(logger, operationalPaths)(okHandler(http.StatusOK))

	for _, path := range operationalPaths {
		serve(h, "GET", path)
	}
	if n := logs.Len(); n != 0 {
		t.Errorf("logged %d lines for operational paths, want 0", n)
	}
}

func TestAnnotate_OutsideMiddleware(t *testing.T) {
	// Must not panic without an access log in the context.
	Annotate(context.Background(), zap.String("pattern", "foo*"))
}

func TestClientLimiter_DropsIdleClients(t *testing.T) {
	l := newClientLimiter(rate.Limit(1), 1, time.Minute)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if !l.allow("10.1.0.1", t0) {
		t.Fatal("first request refused")
	}
	if l.allow("10.1.0.1", t0) {
		t.Fatal("burst exceeded but allowed")
	}
	if !l.allow("10.1.0.2", t0.Add(30*time.Second)) {
		t.Fatal("second client refused")
	}
	if n := l.size(); n != 2 {
		t.Fatalf("tracked clients = %d, want 2", n)
	}

	// 10.1.0.1 has been idle a full minute, 10.1.0.2 only half of one.
	if !l.allow("10.1.0.3", t0.Add(time.Minute)) {
		t.Fatal("third client refused")
	}
	if n := l.size(); n != 2 {
		t.Errorf("tracked clients after sweep = %d, want 2", n)
	}
}
