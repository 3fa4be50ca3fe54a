package testutil

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sontara444/taskmanager-client/internal/fakeapi"
	"github.com/Sontara444/taskmanager-client/transport"
)

// Backend is a fake API server running for the duration of a test.
type Backend struct {
	*fakeapi.Backend
	Server *httptest.Server
}

func NewBackend(t *testing.T, opts fakeapi.Options) *Backend {
	t.Helper()

	b := fakeapi.New(opts)
	srv := httptest.NewServer(b)
	t.Cleanup(func() {
		b.Close()
		srv.Close()
	})
	return &Backend{Backend: b, Server: srv}
}

func (b *Backend) APIURL() string { return b.Server.URL + "/api" }

func (b *Backend) PushURL() string {
	return "ws" + strings.TrimPrefix(b.Server.URL, "http") + "/ws"
}

// Client returns an HTTP client for the backend that sends tokens' bearer
// token. A nil tokens relies on cookies only.
func (b *Backend) Client(t *testing.T, tokens transport.TokenSource) *transport.Client {
	t.Helper()

	c, err := transport.NewHTTPClient(transport.Options{
		BaseURL:            b.APIURL(),
		Timeout:            5 * time.Second,
		Tokens:             tokens,
		BreakerMaxFailures: 100,
	})
	require.NoError(t, err)
	return c
}

// StaticToken is a fixed transport.TokenSource.
type StaticToken string

func (s StaticToken) Token() string { return string(s) }
