package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contract-announcer/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getMeResponse = `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Alerts","username":"govcon_alerts_bot"}}`

// newBotServer answers getMe and delegates sendMessage to send.
func newBotServer(t *testing.T, send http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = w.Write([]byte(getMeResponse))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			send(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BotToken:    "123:abc",
		ChatID:      -1001,
		APIEndpoint: server.URL + "/bot%s/%s",
		Timeout:     timeout,
	})
	require.NoError(t, err)
	return client
}

func apiError(code int, description string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = fmt.Fprintf(w, `{"ok":false,"error_code":%d,"description":%q,"parameters":{"retry_after":7}}`, code, description)
	}
}

func TestNewClient_VerifiesCredentials(t *testing.T) {
	server := newBotServer(t, apiError(http.StatusBadRequest, "unused"))
	client := newTestClient(t, server, time.Second)
	assert.Equal(t, "govcon_alerts_bot", client.Username())
}

func TestNewClient_RejectedToken(t *testing.T) {
	server := httptest.NewServer(apiError(http.StatusUnauthorized, "Unauthorized"))
	defer server.Close()

	_, err := NewClient(Config{BotToken: "bad", APIEndpoint: server.URL + "/bot%s/%s"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.Auth)
}

func TestClient_Publish(t *testing.T) {
	server := newBotServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "-1001", r.FormValue("chat_id"))
		assert.Equal(t, "hello channel", r.FormValue("text"))
		assert.Empty(t, r.FormValue("parse_mode"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1792411200,"chat":{"id":-1001}}}`))
	})
	client := newTestClient(t, server, time.Second)

	receipt, err := client.Publish(context.Background(), "hello channel")
	require.NoError(t, err)
	assert.Equal(t, "42", receipt.MessageID)
	assert.Equal(t, time.Unix(1792411200, 0).UTC(), receipt.PublishedAt)
}

func TestClient_PublishErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind apperror.Kind
	}{
		{name: "forbidden", handler: apiError(http.StatusForbidden, "Forbidden: bot was kicked"), wantKind: apperror.KindAuth},
		{name: "rate limited", handler: apiError(http.StatusTooManyRequests, "Too Many Requests"), wantKind: apperror.KindRateLimited},
		{name: "server error", handler: apiError(http.StatusBadGateway, "Bad Gateway"), wantKind: apperror.KindTransient},
		{name: "bad request", handler: apiError(http.StatusBadRequest, "Bad Request: message is too long"), wantKind: apperror.KindRejected},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			wantKind: apperror.KindAmbiguous,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newBotServer(t, tt.handler)
			client := newTestClient(t, server, 200*time.Millisecond)

			_, err := client.Publish(context.Background(), "hello")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperror.KindOf(err))
		})
	}
}

func TestClient_PublishConnectionRefusedIsTransient(t *testing.T) {
	server := newBotServer(t, apiError(http.StatusBadRequest, "unused"))
	client := newTestClient(t, server, time.Second)
	server.Close()

	_, err := client.Publish(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperror.KindTransient, apperror.KindOf(err))
}

func TestClient_PublishCancelledContext(t *testing.T) {
	server := newBotServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("sendMessage must not be called")
	})
	client := newTestClient(t, server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Publish(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}
