package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueHandlerChunks(t *testing.T) {
	mu := sync.Mutex{}
	batches := make([][]int, 0)
	q := NewQueueHandlerWithInterval(func(items []int) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, append([]int(nil), items...))
	}, 2, time.Hour)
	q.Add(1, 2, 3, 4, 5)
	assert.Equal(t, 5, q.Len())
	q.Stop()

	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, batches)
	assert.Equal(t, 0, q.Len())
}

func TestQueueHandlerBackground(t *testing.T) {
	done := make(chan []string, 1)
	q := NewQueueHandlerWithInterval(func(items []string) {
		done <- items
	}, 10, 5*time.Millisecond)
	defer q.Stop()
	q.Add("a")
	select {
	case items := <-done:
		assert.Equal(t, []string{"a"}, items)
	case <-time.After(time.Second):
		t.Fatal("queue was never processed")
	}
}

type trackerFunc func(string, *http.Request)

func (f trackerFunc) TrackSession(id string, r *http.Request) { f(id, r) }

func TestSessionCookie(t *testing.T) {
	tracked := make(chan string, 1)
	tracker := trackerFunc(func(id string, _ *http.Request) { tracked <- id })

	res := httptest.NewRecorder()
	id := HandleSessionCookie(tracker, res, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, <-tracked)
	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, id, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})
	res = httptest.NewRecorder()
	assert.Equal(t, id, HandleSessionCookie(nil, res, req), "an existing session is kept")
	assert.Empty(t, res.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "12345"})
	assert.NotEqual(t, "12345", HandleSessionCookie(nil, httptest.NewRecorder(), req))
}

func TestJsonHandlerOptions(t *testing.T) {
	called := false
	handler := JsonHandler(nil, func(w http.ResponseWriter, r *http.Request, sessionId string, enc *json.Encoder) error {
		called = true
		return nil
	})
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	res := httptest.NewRecorder()
	handler(res, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusAccepted, res.Code)
	assert.Equal(t, "https://example.com", res.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoadTimeoutConfig(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "42")
	t.Setenv("WRITE_TIMEOUT", "soon")
	cfg := LoadTimeoutConfig(DefaultTimeouts)
	assert.Equal(t, 42*time.Second, cfg.Read)
	assert.Equal(t, DefaultTimeouts.Write, cfg.Write)
}
