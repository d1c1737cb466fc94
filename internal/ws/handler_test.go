package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/session"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/store"
	"github.com/SRIKRISHNAN-TR/ai-interview-agent/internal/voice"
)

type fakeChannel struct {
	voice.Hub

	mu     sync.Mutex
	starts []map[string]string
	stops  int
}

func (c *fakeChannel) Start(_ context.Context, _ voice.AgentConfig, variables map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts = append(c.starts, variables)
	return nil
}

func (c *fakeChannel) Send(context.Context, voice.Message) error { return nil }

func (c *fakeChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	return nil
}

func (c *fakeChannel) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

func (c *fakeChannel) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.starts)
}

// waitStart waits for the n-th Start call and returns its variables.
func (c *fakeChannel) waitStart(t *testing.T, n int) map[string]string {
	t.Helper()
	require.Eventually(t, func() bool { return c.startCount() >= n }, 2*time.Second, 5*time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts[n-1]
}

type fakeScorer struct{}

func (fakeScorer) ScoreFeedback(_ context.Context, req session.FeedbackRequest) (*session.FeedbackResult, error) {
	return &session.FeedbackResult{FeedbackID: "fb-" + req.InterviewID}, nil
}

type testServer struct {
	srv      *httptest.Server
	channels chan *fakeChannel
	journal  *store.Memory
}

func newTestServer(t *testing.T, cfg HandlerConfig) *testServer {
	t.Helper()
	ts := &testServer{
		channels: make(chan *fakeChannel, 4),
		journal:  store.NewMemory(),
	}
	cfg.NewChannel = func() voice.Channel {
		ch := &fakeChannel{}
		ts.channels <- ch
		return ch
	}
	cfg.Journal = ts.journal
	if cfg.Feedback == nil {
		cfg.Feedback = fakeScorer{}
	}
	ts.srv = httptest.NewServer(NewHandler(cfg))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) dial(t *testing.T, meta sessionMetadata) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.WriteJSON(meta))
	return conn
}

func (ts *testServer) channel(t *testing.T) *fakeChannel {
	t.Helper()
	select {
	case ch := <-ts.channels:
		return ch
	case <-time.After(2 * time.Second):
		t.Fatal("no voice channel created")
		return nil
	}
}

type frame map[string]any

// readUntil reads frames until one matches, failing after a deadline.
func readUntil(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		if match(f) {
			return f
		}
	}
}

func ofType(typ string) func(frame) bool {
	return func(f frame) bool { return f["type"] == typ }
}

func status(s session.CallState) func(frame) bool {
	return func(f frame) bool { return f["type"] == "status" && f["status"] == string(s) }
}

func action(t *testing.T, conn *websocket.Conn, act clientAction) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(act))
}

func TestInterviewCallOverSocket(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{})
	conn := ts.dial(t, sessionMetadata{
		UserName:    "Ada",
		UserID:      "u1",
		Type:        "interview",
		InterviewID: "iv-1",
		Questions:   []string{"Q1", "Q2"},
	})
	ch := ts.channel(t)

	opened := readUntil(t, conn, ofType("session"))
	assert.Equal(t, "interview", opened["mode"])
	assert.NotEmpty(t, opened["sessionId"])

	action(t, conn, clientAction{Action: ActionStart})
	readUntil(t, conn, status(session.Connecting))
	assert.Equal(t, "- Q1\n- Q2", ch.waitStart(t, 1)["questions"])

	ch.Publish(voice.Event{Type: voice.EventCallStart})
	readUntil(t, conn, status(session.Active))

	ch.Publish(voice.Event{Type: voice.EventTranscript, Role: "user", Text: "  I built a cache. ", Final: true})
	line := readUntil(t, conn, ofType("transcript"))
	assert.Equal(t, "participant", line["speaker"])
	assert.Equal(t, "I built a cache.", line["text"])

	ch.Publish(voice.Event{Type: voice.EventCallEnd})
	readUntil(t, conn, status(session.Finished))
	nav := readUntil(t, conn, ofType("navigate"))
	assert.Equal(t, "/interview/iv-1/feedback", nav["path"])

	conn.Close()
	assert.Eventually(t, func() bool {
		calls, _, err := ts.journal.ListCalls(context.Background(), 10, 0)
		return err == nil && len(calls) == 1 && calls[0].EndedAt != nil
	}, 2*time.Second, 10*time.Millisecond)

	calls, _, err := ts.journal.ListCalls(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "u1", calls[0].UserID)
	assert.Equal(t, "iv-1", calls[0].InterviewID)
}

func TestStartAfterFinishOpensNewSession(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{})
	conn := ts.dial(t, sessionMetadata{UserName: "Ada", UserID: "u1"})
	ch := ts.channel(t)

	first := readUntil(t, conn, ofType("session"))
	assert.Equal(t, "generate", first["mode"])

	action(t, conn, clientAction{Action: ActionStart})
	readUntil(t, conn, status(session.Connecting))
	assert.Contains(t, ch.waitStart(t, 1)["questions"], "Hi Ada!")

	ch.Publish(voice.Event{Type: voice.EventCallEnd})
	nav := readUntil(t, conn, ofType("navigate"))
	assert.Equal(t, session.HomePath, nav["path"])

	action(t, conn, clientAction{Action: ActionStart})
	second := readUntil(t, conn, ofType("session"))
	assert.NotEqual(t, first["sessionId"], second["sessionId"])
	readUntil(t, conn, status(session.Connecting))
	ch.waitStart(t, 2)
}

func TestChannelStoppedWhenSocketCloses(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{})
	conn := ts.dial(t, sessionMetadata{UserID: "u1", InterviewID: "iv-1", Questions: []string{"Q1"}})
	ch := ts.channel(t)
	readUntil(t, conn, ofType("session"))

	action(t, conn, clientAction{Action: ActionStart})
	readUntil(t, conn, status(session.Connecting))
	ch.waitStart(t, 1)
	ch.Publish(voice.Event{Type: voice.EventCallStart})
	readUntil(t, conn, status(session.Active))

	// The provider ends the call but keeps its socket open.
	ch.Publish(voice.Event{Type: voice.EventCallEnd})
	readUntil(t, conn, ofType("navigate"))
	assert.Zero(t, ch.stopCount())

	conn.Close()
	assert.Eventually(t, func() bool { return ch.stopCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestMetadataTimeoutFreesSlot(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{MaxConcurrent: 1, MetadataTimeout: 50 * time.Millisecond})
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http")

	idle, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer idle.Close()

	assert.Eventually(t, func() bool {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestActionErrors(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{MaxResumeBytes: 4})
	conn := ts.dial(t, sessionMetadata{UserID: "u1", Type: "resume"})
	ts.channel(t)
	readUntil(t, conn, ofType("session"))

	action(t, conn, clientAction{Action: "dance"})
	f := readUntil(t, conn, ofType("error"))
	assert.Contains(t, f["text"], `unknown action "dance"`)

	action(t, conn, clientAction{Action: ActionUploadResume, Filename: "cv.pdf", Content: []byte("0123456789")})
	f = readUntil(t, conn, ofType("error"))
	assert.Contains(t, f["text"], "exceeds 4 bytes")

	action(t, conn, clientAction{Action: ActionRetryGeneration})
	f = readUntil(t, conn, ofType("error"))
	assert.Contains(t, f["text"], session.ErrNotSetupMode.Error())
}

func TestInvalidModeIsRejected(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{})
	conn := ts.dial(t, sessionMetadata{UserID: "u1", Type: "karaoke"})
	f := readUntil(t, conn, ofType("error"))
	assert.NotEmpty(t, f["text"])
}

func TestAtCapacity(t *testing.T) {
	ts := newTestServer(t, HandlerConfig{MaxConcurrent: 1})
	conn := ts.dial(t, sessionMetadata{UserID: "u1"})
	ts.channel(t)
	readUntil(t, conn, ofType("session"))

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestModeFor(t *testing.T) {
	mode, err := modeFor(&sessionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, session.ModeVoiceSetup, mode)

	mode, err = modeFor(&sessionMetadata{InterviewID: "iv-1"})
	require.NoError(t, err)
	assert.Equal(t, session.ModeQuestions, mode)

	mode, err = modeFor(&sessionMetadata{Type: "resume-based"})
	require.NoError(t, err)
	assert.Equal(t, session.ModeResume, mode)
}
