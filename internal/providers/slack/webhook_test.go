package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/autobill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookPostsMessage(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).PostMessage(context.Background(), "#billing-alerts", "invoice 1 failed")
	require.NoError(t, err)
	assert.Equal(t, webhookPayload{Channel: "#billing-alerts", Text: "invoice 1 failed"}, got)
}

func TestWebhookReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).PostMessage(context.Background(), "", "x")
	assert.ErrorContains(t, err, "invalid_token")
}

func TestNewFromConfig(t *testing.T) {
	assert.IsType(t, &NoOpProvider{}, NewFromConfig(config.Config{}))
	assert.IsType(t, &WebhookProvider{}, NewFromConfig(config.Config{Slack: config.SlackConfig{WebhookURL: "https://hooks.slack.test/x"}}))
}
