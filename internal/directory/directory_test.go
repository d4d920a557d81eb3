package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/novadent/booking-gateway/internal/clinicapi"
	"github.com/novadent/booking-gateway/pkg/logging"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func testBackend(t *testing.T, hits *int) *clinicapi.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		if r.URL.Path != "/receptionist/dentists" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"dentists":[
			{"id":1,"name":"Dr. Smith","dentistCode":"DEN-01"},
			{"id":2,"name":"Dr. Patel","dentistCode":"DEN-02"}
		]}`))
	}))
	t.Cleanup(ts.Close)
	return clinicapi.NewClient(ts.URL, 0, logging.Default())
}

func TestListCachesBetweenCalls(t *testing.T) {
	hits := 0
	dir := New(testBackend(t, &hits), testRedis(t), time.Minute, logging.Default())
	ctx := context.Background()

	first, err := dir.List(ctx, "tok")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("len = %d, want 2", len(first))
	}

	if _, err := dir.List(ctx, "tok"); err != nil {
		t.Fatalf("List() second call error = %v", err)
	}
	if hits != 1 {
		t.Fatalf("backend hit %d times, want 1", hits)
	}
}

func TestListWithoutRedisStillWorks(t *testing.T) {
	hits := 0
	dir := New(testBackend(t, &hits), nil, time.Minute, logging.Default())

	doctors, err := dir.List(context.Background(), "tok")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(doctors) != 2 {
		t.Fatalf("len = %d, want 2", len(doctors))
	}
}

func TestResolve(t *testing.T) {
	hits := 0
	dir := New(testBackend(t, &hits), testRedis(t), time.Minute, logging.Default())
	ctx := context.Background()

	tests := []struct {
		idOrCode string
		wantID   string
	}{
		{"1", "1"},
		{"DEN-02", "2"},
		{"dr. patel", "2"},
	}
	for _, tt := range tests {
		doc, err := dir.Resolve(ctx, "tok", tt.idOrCode)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tt.idOrCode, err)
		}
		if doc.ID != tt.wantID {
			t.Errorf("Resolve(%q).ID = %s, want %s", tt.idOrCode, doc.ID, tt.wantID)
		}
	}

	if _, err := dir.Resolve(ctx, "tok", "nobody"); err != ErrUnknownDoctor {
		t.Errorf("Resolve(nobody) error = %v, want ErrUnknownDoctor", err)
	}
	if _, err := dir.Resolve(ctx, "tok", "  "); err != ErrUnknownDoctor {
		t.Errorf("Resolve(blank) error = %v, want ErrUnknownDoctor", err)
	}
}
