// Package francetravail is a client for the France Travail partner API:
// OAuth2 client-credentials token exchange, ROMEO occupation-code prediction
// and the paginated job-offer search.
package francetravail

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL   = "https://api.francetravail.io/partenaire"
	tokenURL = "https://entreprise.francetravail.fr/connexion/oauth2/access_token"

	searchPath = "/offresdemploi/v2/offres/search"
	offerPath  = "/offresdemploi/v2/offres"
	romeoPath  = "/romeo/v2/predictionMetiers"

	tokenRealm  = "/partenaire"
	tokenScopes = "api_offresdemploiv2 o2dsoffre api_romeov2"

	contentType = "application/json"
)

type Client struct {
	logger     *zap.Logger
	tokens     *TokenManager
	HTTPClient *http.Client
	APIURL     string

	romeo romeoCache
}

// New creates a client using the given token manager for authentication.
func New(logger *zap.Logger, tokens *TokenManager) *Client {
	return &Client{
		logger: logger,
		tokens: tokens,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do attaches the bearer token and executes the request, returning the
// response for status-specific handling by the caller.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Accept", contentType)

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

// decodeJSON reads the body into target, which may be nil to discard it.
func decodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}
