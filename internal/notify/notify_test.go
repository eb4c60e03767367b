package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment_research/internal/logging"
)

func TestReadyMessage(t *testing.T) {
	assert.Equal(t, "Analysis ready for 'climate policy'.", ReadyMessage("climate policy"))
}

func TestWebhookNotifier(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(srv.URL, logging.Discard())
	err := n.Notify(context.Background(), Message{Destination: "user", Text: ReadyMessage("ai")})
	require.NoError(t, err)
	assert.Equal(t, "user", got.Destination)
	assert.Equal(t, "Analysis ready for 'ai'.", got.Text)
}

func TestWebhookNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Notify(context.Background(), Message{Text: "x"})
	assert.EqualError(t, err, "webhook status 502")
}
