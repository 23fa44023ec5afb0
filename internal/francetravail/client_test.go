package francetravail

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// newTestClient builds a client whose API and token endpoints both point at
// the given handler; the token endpoint always succeeds.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			fmt.Fprint(w, `{"access_token":"test-token","expires_in":1499}`)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	tokens := NewTokenManager(zap.NewNop(), "id", "secret")
	tokens.TokenURL = server.URL + "/token"

	client := New(zap.NewNop(), tokens)
	client.APIURL = server.URL
	return client
}
