package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groupwarden/warden/pkg/cachestore"
	"github.com/groupwarden/warden/pkg/connector"
	"github.com/groupwarden/warden/pkg/detect"
	"github.com/groupwarden/warden/pkg/docstore"
	"github.com/groupwarden/warden/pkg/keyword"
	"github.com/groupwarden/warden/pkg/moderation"
)

func newTestServer(t *testing.T) (*Server, *connector.Fake) {
	t.Helper()
	docs := docstore.NewMemStore()
	cache := cachestore.NewMemStore()
	fake := connector.NewFake()
	kws := keyword.NewStore(docs)
	detector := detect.NewDetector(kws, cache, docs, nil)
	spam := detect.NewSpamDetector(cache)
	engine := moderation.NewEngine(docs, fake, nil)
	engine.EffectPause = 0
	return NewServer(detector, spam, engine, kws, fake), fake
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App()

	resp, out := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}

func TestKeywordLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App()

	resp, out := doJSON(t, app, http.MethodPost, "/conversations/_global/keywords",
		map[string]any{"words": []string{"tanga", "the"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["added"], 1)
	assert.Len(t, out["skipped"], 1)

	resp, out = doJSON(t, app, http.MethodGet, "/conversations/conv1/keywords", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["global"], 1)

	resp, out = doJSON(t, app, http.MethodDelete, "/conversations/_global/keywords",
		map[string]any{"words": []string{"tanga"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["removed"], 1)
}

func TestMessagePipeline(t *testing.T) {
	s, fake := newTestServer(t)
	app := s.App()

	_, _ = doJSON(t, app, http.MethodPost, "/conversations/_global/keywords",
		map[string]any{"words": []string{"tanga"}})

	resp, out := doJSON(t, app, http.MethodPost, "/messages", map[string]any{
		"id":             "m1",
		"conversationId": "conv1",
		"senderId":       "user1",
		"senderName":     "Juan",
		"body":           "ikaw ay t4ng4",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, out["violation"])
	v := out["violation"].(map[string]any)
	assert.Equal(t, "direct", v["reason"])
	assert.NotEmpty(t, fake.CallsFor("send"), "the conversation gets notified")

	// A clean message reports no violation.
	resp, out = doJSON(t, app, http.MethodPost, "/messages", map[string]any{
		"id":             "m2",
		"conversationId": "conv1",
		"senderId":       "user1",
		"body":           "magandang umaga",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, out["violation"])
}

func TestProtectSuppressesDetection(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App()

	_, _ = doJSON(t, app, http.MethodPost, "/conversations/_global/keywords",
		map[string]any{"words": []string{"tanga"}})
	resp, _ := doJSON(t, app, http.MethodPost, "/conversations/conv1/protect",
		map[string]any{"participantId": "mod1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg := map[string]any{
		"id": "m1", "conversationId": "conv1", "senderId": "mod1", "body": "tanga",
	}
	_, out := doJSON(t, app, http.MethodPost, "/messages", msg)
	assert.Nil(t, out["violation"])

	resp, _ = doJSON(t, app, http.MethodDelete, "/conversations/conv1/protect/mod1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	msg["id"] = "m2"
	_, out = doJSON(t, app, http.MethodPost, "/messages", msg)
	assert.NotNil(t, out["violation"])
}

func TestProtectedSkipsSpamCounters(t *testing.T) {
	s, fake := newTestServer(t)
	app := s.App()

	resp, _ := doJSON(t, app, http.MethodPost, "/conversations/conv1/protect",
		map[string]any{"participantId": "mod1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	for i := 0; i < 5; i++ {
		_, out = doJSON(t, app, http.MethodPost, "/messages", map[string]any{
			"id":             fmt.Sprintf("m%d", i),
			"conversationId": "conv1",
			"senderId":       "mod1",
			"body":           "same thing",
		})
	}
	assert.Nil(t, out["violation"], "repeats from a protected participant are not spam")

	for i := 0; i < 5; i++ {
		_, out = doJSON(t, app, http.MethodPost, "/events/invalid-command",
			map[string]any{"conversationId": "conv1", "participantId": "mod1"})
	}
	assert.Nil(t, out["violation"])
	assert.Empty(t, fake.CallsFor("send"), "no soft warnings either")
}

func TestInvalidCommandSpam(t *testing.T) {
	s, fake := newTestServer(t)
	app := s.App()

	body := map[string]any{"conversationId": "conv1", "participantId": "user1"}
	var out map[string]any
	for i := 0; i < 5; i++ {
		var resp *http.Response
		resp, out = doJSON(t, app, http.MethodPost, "/events/invalid-command", body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	require.NotNil(t, out["violation"])
	v := out["violation"].(map[string]any)
	assert.Equal(t, "spam", v["reason"])
	assert.NotEmpty(t, fake.CallsFor("send"), "soft warn went out on the third attempt")
}

func TestUnbanErrors(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App()

	resp, _ := doJSON(t, app, http.MethodDelete, "/conversations/conv1/bans/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBanEndpointConflict(t *testing.T) {
	s, _ := newTestServer(t)
	app := s.App()

	body := map[string]any{"participantId": "user1", "reason": "keyword", "bannedBy": "admin"}
	resp, out := doJSON(t, app, http.MethodPost, "/conversations/conv1/bans", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, out["uid"], 6)

	resp, _ = doJSON(t, app, http.MethodPost, "/conversations/conv1/bans", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
