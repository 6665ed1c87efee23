package questsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

// recordingServer captures every request and answers 200 unless a status
// override is set for the path.
type recordingServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	statuses map[string]int
}

func newRecordingServer() (*recordingServer, *httptest.Server) {
	rs := &recordingServer{statuses: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if data, err := io.ReadAll(r.Body); err == nil && len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
		rs.mu.Lock()
		rs.requests = append(rs.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		status := rs.statuses[r.URL.Path]
		rs.mu.Unlock()
		if status != 0 {
			http.Error(w, "rejected", status)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return rs, srv
}

func (rs *recordingServer) recorded() []recordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]recordedRequest, len(rs.requests))
	copy(out, rs.requests)
	return out
}

func staticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

func TestCharacterSynchronizerGroupsRemoteCalls(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()

	s := NewCharacterSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(online))
	payload := map[string]any{
		"level":      5,
		"class":      "ranger",
		"experience": 120,
		"equipment":  map[string]any{"weapon": "bow"},
	}
	require.NoError(t, s.Apply(context.Background(), "c1", payload))

	reqs := rs.recorded()
	require.Len(t, reqs, 3)

	require.Equal(t, http.MethodPut, reqs[0].method)
	require.Equal(t, "/characters/c1/stats", reqs[0].path)
	require.Equal(t, "Bearer test-token", reqs[0].auth)
	require.EqualValues(t, 5, reqs[0].body["level"])
	require.NotContains(t, reqs[0].body, "experience")
	require.NotContains(t, reqs[0].body, "equipment")

	require.Equal(t, http.MethodPost, reqs[1].method)
	require.Equal(t, "/characters/c1/experience", reqs[1].path)
	require.EqualValues(t, 120, reqs[1].body["experience"])

	require.Equal(t, http.MethodPut, reqs[2].method)
	require.Equal(t, "/characters/c1/equipment", reqs[2].path)
}

func TestCharacterSynchronizerSkipsEmptyGroups(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()

	s := NewCharacterSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(online))
	require.NoError(t, s.Apply(context.Background(), "c1", map[string]any{"experience": 50}))

	reqs := rs.recorded()
	require.Len(t, reqs, 1)
	require.Equal(t, "/characters/c1/experience", reqs[0].path)
}

func TestSynchronizerFailsOffline(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()

	s := NewQuestProgressSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(offline))
	err := s.Apply(context.Background(), "q1", map[string]any{"progress": 10})
	require.ErrorIs(t, err, ErrOffline)
	require.Empty(t, rs.recorded())
}

func TestSynchronizerFailsWithoutCredential(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()

	session := NewSession() // never signed in
	s := NewAchievementSynchronizer(srv.URL, srv.Client(), session.Token, NewManualMonitor(online))
	err := s.Apply(context.Background(), "a1", map[string]any{"count": 1})
	require.ErrorIs(t, err, ErrNoCredential)
	require.Empty(t, rs.recorded())
}

func TestSynchronizerSurfacesRemoteRejection(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()
	rs.statuses["/quests/q1/progress"] = http.StatusUnprocessableEntity

	s := NewQuestProgressSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(online))
	err := s.Apply(context.Background(), "q1", map[string]any{"progress": 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
}

func TestQuestProgressSynchronizerCompletion(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()

	s := NewQuestProgressSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(online))
	payload := map[string]any{"progress": 100, "completed": true}
	require.NoError(t, s.Apply(context.Background(), "q1", payload))

	reqs := rs.recorded()
	require.Len(t, reqs, 2)
	require.Equal(t, "/quests/q1/progress", reqs[0].path)
	require.NotContains(t, reqs[0].body, "completed")
	require.Equal(t, "/quests/q1/complete", reqs[1].path)
}

func TestAchievementSynchronizerUnlock(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()

	s := NewAchievementSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(online))
	payload := map[string]any{"count": 10, "unlocked": true}
	require.NoError(t, s.Apply(context.Background(), "a1", payload))

	reqs := rs.recorded()
	require.Len(t, reqs, 2)
	require.Equal(t, "/achievements/a1/progress", reqs[0].path)
	require.Equal(t, "/achievements/a1/unlock", reqs[1].path)
}

// Partial failure leaves earlier sub-updates applied; a retry of the same
// payload repeats them safely (absolute values).
func TestCharacterSynchronizerPartialFailureThenRetry(t *testing.T) {
	rs, srv := newRecordingServer()
	defer srv.Close()
	rs.statuses["/characters/c1/experience"] = http.StatusInternalServerError

	s := NewCharacterSynchronizer(srv.URL, srv.Client(), staticToken("test-token"), NewManualMonitor(online))
	payload := map[string]any{"level": 6, "experience": 10}

	require.Error(t, s.Apply(context.Background(), "c1", payload))

	rs.mu.Lock()
	delete(rs.statuses, "/characters/c1/experience")
	rs.mu.Unlock()

	require.NoError(t, s.Apply(context.Background(), "c1", payload))

	reqs := rs.recorded()
	// stats, experience(fail), stats again, experience again
	require.Len(t, reqs, 4)
	require.Equal(t, "/characters/c1/stats", reqs[0].path)
	require.Equal(t, "/characters/c1/experience", reqs[1].path)
	require.Equal(t, "/characters/c1/stats", reqs[2].path)
	require.Equal(t, "/characters/c1/experience", reqs[3].path)
}
