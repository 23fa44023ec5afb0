package francetravail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// RawOffer is one search result: the payload exactly as the API returned it,
// plus the extracted external identifier.
type RawOffer struct {
	ID      string
	Payload map[string]any
}

// SearchOffers runs one ranged search for the given ROME codes and region.
// A 204 response is a valid empty result; any other non-2xx status is an
// error. Payloads are returned verbatim.
func (c *Client) SearchOffers(ctx context.Context, codes []string, region string, rangeStart, rangeEnd int) ([]RawOffer, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("codeROME", strings.Join(codes, ","))
	if region != "" {
		q.Set("region", region)
	}
	q.Set("range", fmt.Sprintf("%d-%d", rangeStart, rangeEnd))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+searchPath, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		c.logger.Info("search returned no offers")
		return nil, nil
	}

	// The API answers 206 Partial Content for ranged searches.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("search offers: bad status: %s", resp.Status)
	}

	var payload struct {
		Resultats []map[string]any `json:"resultats"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, fmt.Errorf("search offers: %w", err)
	}

	offers := make([]RawOffer, 0, len(payload.Resultats))
	for _, raw := range payload.Resultats {
		id, _ := raw["id"].(string)
		if id == "" {
			c.logger.Warn("skipping offer without id")
			continue
		}
		offers = append(offers, RawOffer{ID: id, Payload: raw})
	}

	c.logger.Info("offers collected", zap.Int("count", len(offers)))
	return offers, nil
}

// OfferDetail fetches the full payload of one offer. Returns (nil, nil) when
// the identifier is stale (404 upstream).
func (c *Client) OfferDetail(ctx context.Context, externalID string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+offerPath+"/"+externalID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		c.logger.Warn("offer no longer exists upstream", zap.String("external_id", externalID))
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("offer detail: bad status: %s", resp.Status)
	}

	var payload map[string]any
	if err := decodeJSON(resp, &payload); err != nil {
		return nil, fmt.Errorf("offer detail: %w", err)
	}

	return payload, nil
}
