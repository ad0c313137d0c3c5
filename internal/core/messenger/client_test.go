package messenger

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		AppID:       "123456",
		AppSecret:   "shhh",
		RedirectURL: "https://app.minechat.ai/connect/callback",
	})
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()
	_, err := NewClient(ClientConfig{AppSecret: "s"})
	assert.Error(t, err)
	_, err = NewClient(ClientConfig{AppID: "123"})
	assert.Error(t, err)
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()
	client := testClient(t)

	raw := client.AuthorizationURL("tenant-uuid-here")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "123456", q.Get("client_id"))
	assert.Equal(t, "https://app.minechat.ai/connect/callback", q.Get("redirect_uri"))
	assert.Equal(t, "tenant-uuid-here", q.Get("state"))
	assert.Contains(t, q.Get("scope"), "pages_messaging")
}

func graphError(code, subcode int, message string) []byte {
	return []byte(fmt.Sprintf(`{"error":{"message":%q,"type":"OAuthException","code":%d,"error_subcode":%d}}`, message, code, subcode))
}

func TestClassifyGraphError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
		want ErrorCode
	}{
		{"expired token", graphError(190, 0, "Error validating access token"), CodeTokenInvalid},
		{"password changed", graphError(190, 36007, "The session has been invalidated"), CodeAuthorizationExpired},
		{"session expired subcode", graphError(190, 36009, "Session expired"), CodeAuthorizationExpired},
		{"app throttled", graphError(4, 0, "Application request limit reached"), CodeRateLimited},
		{"user throttled", graphError(17, 0, "User request limit reached"), CodeRateLimited},
		{"page throttled", graphError(32, 0, "Page request limit reached"), CodeRateLimited},
		{"messaging throttled", graphError(613, 0, "Calls to this api have exceeded the rate limit"), CodeRateLimited},
		{"permission missing", graphError(10, 0, "Application does not have permission"), CodeAuthorizationDenied},
		{"permission revoked", graphError(200, 0, "Permissions error"), CodeAuthorizationDenied},
		{"outside messaging window", graphError(230, 0, "Requires pages_messaging permission"), CodeAuthorizationDenied},
		{"api unknown", graphError(1, 0, "An unknown error occurred"), CodeProviderUnavailable},
		{"api service", graphError(2, 0, "Service temporarily unavailable"), CodeProviderUnavailable},
		{"param error", graphError(100, 0, "Invalid parameter"), CodeProviderAPIError},
		{"unmapped code", graphError(9999, 0, "Something else"), CodeProviderAPIError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := classifyGraphError(400, tt.body)
			assert.True(t, IsCode(err, tt.want), "got %v, want code %s", err, tt.want)
		})
	}
}

func TestClassifyGraphErrorNonEnvelope(t *testing.T) {
	t.Parallel()

	err := classifyGraphError(502, []byte("<html>Bad Gateway</html>"))
	assert.True(t, IsCode(err, CodeProviderAPIError))
	assert.Contains(t, err.Error(), "502")
}

func TestProviderErrorHelpers(t *testing.T) {
	t.Parallel()

	err := NewProviderError(CodeRateLimited, "slow down")
	assert.True(t, IsCode(err, CodeRateLimited))
	assert.False(t, IsCode(err, CodeTokenInvalid))
	assert.Equal(t, CodeRateLimited, CodeOf(err))
	assert.Equal(t, CodeProviderAPIError, CodeOf(fmt.Errorf("plain error")))
}
