package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minechat/minechat-be/internal/modules/inbox/services"
)

const (
	verifyToken = "minechat_webhook_verify_token"
	appSecret   = "test-app-secret"
)

func newWebhookApp() *fiber.App {
	svc := services.NewWebhookService(verifyToken, appSecret, nil, nil, nil, nil)
	handler := NewWebhookHandler(svc)

	app := fiber.New()
	app.Get("/webhook/facebook", handler.Verify)
	app.Post("/webhook/facebook", handler.Receive)
	return app
}

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyEndpointEchoesChallenge(t *testing.T) {
	t.Parallel()
	app := newWebhookApp()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/facebook?hub.mode=subscribe&hub.verify_token="+verifyToken+"&hub.challenge=123", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "123", string(body))
}

func TestVerifyEndpointRejectsBadToken(t *testing.T) {
	t.Parallel()
	app := newWebhookApp()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook/facebook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=123", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReceiveRejectsInvalidSignature(t *testing.T) {
	t.Parallel()
	app := newWebhookApp()

	body := []byte(`{"object":"page","entry":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestReceiveAcksSignedDelivery(t *testing.T) {
	t.Parallel()
	app := newWebhookApp()

	body := []byte(`{"object":"page","entry":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(body))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	respBody, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "EVENT_RECEIVED", string(respBody))
}

func TestReceiveRejectsMalformedBody(t *testing.T) {
	t.Parallel()
	app := newWebhookApp()

	body := []byte(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/webhook/facebook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody(body))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
