package generic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsGate_SlowHostDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer slow.Close()
	defer close(release)

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
	}))
	defer fast.Close()

	gate := newRobotsGate(http.DefaultClient, "mangacat-test")

	go gate.Allowed(context.Background(), slow.URL+"/truyen/a")
	time.Sleep(50 * time.Millisecond)

	done := make(chan bool, 1)
	go func() { done <- gate.Allowed(context.Background(), fast.URL+"/admin/x") }()

	select {
	case allowed := <-done:
		assert.False(t, allowed)
	case <-time.After(2 * time.Second):
		t.Fatal("robots lookup for one host waited on another host's fetch")
	}
}

func TestRobotsGate_FetchesOncePerHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer srv.Close()

	gate := newRobotsGate(srv.Client(), "mangacat-test")

	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		go func() { results <- gate.Allowed(context.Background(), srv.URL+"/private/1") }()
	}
	for i := 0; i < 8; i++ {
		require.False(t, <-results)
	}

	assert.True(t, gate.Allowed(context.Background(), srv.URL+"/truyen/a"))
	assert.Equal(t, int32(1), hits.Load())
}
