package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// newMockConfigServer creates a test HTTP server that mimics the configuration
// server API under /api/. Returns the server and the recorded request lines.
func newMockConfigServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var requests []string

	mux := http.NewServeMux()
	record := func(r *http.Request) {
		requests = append(requests, r.Method+" "+r.URL.EscapedPath())
	}

	mux.HandleFunc("GET /api/ds", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeTestJSON(w, map[string]any{"version": 7, "serviceList": []string{"video", "images"}})
	})
	mux.HandleFunc("POST /api/ds", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var ds DeliveryService
		if err := json.NewDecoder(r.Body).Decode(&ds); err != nil {
			http.Error(w, "Invalid input", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("Delivery service added"))
	})
	mux.HandleFunc("GET /api/ds/{name}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if r.PathValue("name") != "video" {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		writeTestJSON(w, DeliveryService{
			Name:      "video",
			ClientURL: "http://video.example.com",
			OriginURL: "http://origin.example.com",
			RewriteRules: []RewriteRule{
				{HeaderName: "X-Cache", Operation: RewriteOpAdd, Value: "hit"},
			},
		})
	})
	mux.HandleFunc("PUT /api/ds/{name}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte("Delivery service updated"))
	})
	mux.HandleFunc("DELETE /api/ds/{name}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte("Delivery service deleted"))
	})
	mux.HandleFunc("GET /api/cn", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeTestJSON(w, map[string]any{"version": 3, "NodeList": []string{"edge-1"}})
	})
	mux.HandleFunc("GET /api/cn/{name}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeTestJSON(w, CacheNode{Name: r.PathValue("name"), IP: "10.0.0.5", Port: 8081, Type: NodeTypeEdge})
	})
	mux.HandleFunc("POST /api/cn", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte("CacheNode service added"))
	})
	mux.HandleFunc("DELETE /api/cn/{name}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/invalidate/{pattern}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		w.Header().Set("Location", "/invalidateStatus/1700-42")
		_, _ = w.Write([]byte("Invalidation request received with ID: 1700-42"))
	})
	mux.HandleFunc("GET /api/invalidateStatus/{uid}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_, _ = w.Write([]byte(`{ "status" : "done" }`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, rawURL string, opts ...Option) *Client {
	t.Helper()
	base, err := ParseBase(rawURL)
	if err != nil {
		t.Fatalf("ParseBase(%q): %v", rawURL, err)
	}
	return NewClient(base, 5*time.Second, opts...)
}

func TestParseBase(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "http://localhost:8080", want: "http://localhost:8080/"},
		{raw: "http://localhost:8080/api", want: "http://localhost:8080/api/"},
		{raw: "https://cfg.example.com/v1/?x=1#top", want: "https://cfg.example.com/v1/"},
		{raw: "", wantErr: true},
		{raw: "ftp://cfg.example.com/", wantErr: true},
		{raw: "http:///nohost", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			u, err := ParseBase(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseBase(%q) = %v, want error", tt.raw, u)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBase(%q): %v", tt.raw, err)
			}
			if u.String() != tt.want {
				t.Errorf("ParseBase(%q) = %q, want %q", tt.raw, u.String(), tt.want)
			}
		})
	}
}

func TestURL(t *testing.T) {
	client := newTestClient(t, "http://cfg.local:8080/api")
	if got, want := client.URL("ds"), "http://cfg.local:8080/api/ds"; got != want {
		t.Errorf("URL(ds) = %q, want %q", got, want)
	}
}

func TestListDeliveryServices(t *testing.T) {
	srv, _ := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	list, err := client.ListDeliveryServices(context.Background())
	if err != nil {
		t.Fatalf("ListDeliveryServices error: %v", err)
	}
	if list.Version != 7 {
		t.Errorf("Version = %d, want 7", list.Version)
	}
	if diff := cmp.Diff([]string{"video", "images"}, list.Names); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestListConfigNodes(t *testing.T) {
	srv, _ := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	list, err := client.ListConfigNodes(context.Background())
	if err != nil {
		t.Fatalf("ListConfigNodes error: %v", err)
	}
	if diff := cmp.Diff([]string{"edge-1"}, list.Names); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestListDeliveryServices_MissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeTestJSON(w, map[string]any{"NodeList": []string{"x"}})
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	_, err := client.ListDeliveryServices(context.Background())
	if err == nil || !strings.Contains(err.Error(), "serviceList") {
		t.Fatalf("error = %v, want mention of serviceList", err)
	}
}

func TestListConfigNodes_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"NodeList":[]}`)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	list, err := client.ListConfigNodes(context.Background())
	if err != nil {
		t.Fatalf("ListConfigNodes error: %v", err)
	}
	if len(list.Names) != 0 {
		t.Errorf("Names = %v, want empty", list.Names)
	}
}

func TestListDeliveryServices_NotJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>proxy error</html>")
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	_, err := client.ListDeliveryServices(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unmarshal response") {
		t.Fatalf("error = %v, want unmarshal error", err)
	}
}

func TestInvalidate(t *testing.T) {
	srv, requests := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	res, err := client.Invalidate(context.Background(), "foo*")
	if err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if res.Message != "Invalidation request received with ID: 1700-42" {
		t.Errorf("Message = %q", res.Message)
	}
	if res.StatusID != "1700-42" {
		t.Errorf("StatusID = %q, want %q", res.StatusID, "1700-42")
	}
	if diff := cmp.Diff([]string{"GET /api/invalidate/foo%2A"}, *requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidate_EscapesPathSegment(t *testing.T) {
	srv, requests := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	if _, err := client.Invalidate(context.Background(), "img/a b"); err != nil {
		t.Fatalf("Invalidate error: %v", err)
	}
	if diff := cmp.Diff([]string{"GET /api/invalidate/img%2Fa%20b"}, *requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(t, srv.URL)

	_, err := client.Invalidate(context.Background(), "bar")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500", se.Code)
	}
}

func TestInvalidationStatus(t *testing.T) {
	srv, _ := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	status, err := client.InvalidationStatus(context.Background(), "1700-42")
	if err != nil {
		t.Fatalf("InvalidationStatus error: %v", err)
	}
	if !strings.Contains(status, "done") {
		t.Errorf("status = %q, want it to contain %q", status, "done")
	}
}

func TestGetDeliveryService(t *testing.T) {
	srv, _ := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	ds, err := client.GetDeliveryService(context.Background(), "video")
	if err != nil {
		t.Fatalf("GetDeliveryService error: %v", err)
	}
	if ds.OriginURL != "http://origin.example.com" {
		t.Errorf("OriginURL = %q", ds.OriginURL)
	}
	if len(ds.RewriteRules) != 1 || ds.RewriteRules[0].HeaderName != "X-Cache" {
		t.Errorf("RewriteRules = %+v", ds.RewriteRules)
	}
}

func TestGetDeliveryService_NotFound(t *testing.T) {
	srv, _ := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")

	_, err := client.GetDeliveryService(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestDeliveryServiceWrites(t *testing.T) {
	srv, requests := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")
	ctx := context.Background()
	ds := DeliveryService{Name: "live tv", ClientURL: "http://a", OriginURL: "http://b"}

	msg, err := client.CreateDeliveryService(ctx, ds)
	if err != nil || msg != "Delivery service added" {
		t.Fatalf("Create = %q, %v", msg, err)
	}
	msg, err = client.UpdateDeliveryService(ctx, ds)
	if err != nil || msg != "Delivery service updated" {
		t.Fatalf("Update = %q, %v", msg, err)
	}
	msg, err = client.DeleteDeliveryService(ctx, ds.Name)
	if err != nil || msg != "Delivery service deleted" {
		t.Fatalf("Delete = %q, %v", msg, err)
	}

	want := []string{
		"POST /api/ds",
		"PUT /api/ds/live%20tv",
		"DELETE /api/ds/live%20tv",
	}
	if diff := cmp.Diff(want, *requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigNodeCalls(t *testing.T) {
	srv, _ := newMockConfigServer(t)
	client := newTestClient(t, srv.URL+"/api/")
	ctx := context.Background()

	cn, err := client.GetConfigNode(ctx, "edge-1")
	if err != nil {
		t.Fatalf("GetConfigNode error: %v", err)
	}
	if cn.Type != NodeTypeEdge || cn.Port != 8081 {
		t.Errorf("node = %+v", cn)
	}

	msg, err := client.CreateConfigNode(ctx, *cn)
	if err != nil || msg != "CacheNode service added" {
		t.Fatalf("Create = %q, %v", msg, err)
	}

	if _, err := client.DeleteConfigNode(ctx, "edge-9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete error = %v, want ErrNotFound", err)
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, `{"serviceList":[]}`)
	}))
	t.Cleanup(srv.Close)

	type ctxKey struct{}
	client := newTestClient(t, srv.URL,
		WithToken("s3cret"),
		WithRequestID(func(ctx context.Context) string {
			id, _ := ctx.Value(ctxKey{}).(string)
			return id
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-123")
	if _, err := client.ListDeliveryServices(ctx); err != nil {
		t.Fatalf("ListDeliveryServices error: %v", err)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotID != "req-123" {
		t.Errorf("X-Request-ID = %q", gotID)
	}
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	rawURL := srv.URL
	srv.Close()

	client := newTestClient(t, rawURL)
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestStatusIDFromLocation(t *testing.T) {
	tests := map[string]string{
		"/invalidateStatus/123-456":                 "123-456",
		"http://cfg:8080/api/invalidateStatus/abc/": "abc",
		"/somewhere/else":                           "",
	}
	for loc, want := range tests {
		if got := statusIDFromLocation(loc); got != want {
			t.Errorf("statusIDFromLocation(%q) = %q, want %q", loc, got, want)
		}
	}
}
