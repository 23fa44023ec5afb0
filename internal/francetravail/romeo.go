package francetravail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	romeoCaller     = "jobpulse"
	romeoMaxResults = 5
	romeoMinScore   = 0.6
)

// romeoCache holds the occupation codes predicted for the profile text.
// Computed once per process; repeated pipeline runs skip the ROMEO call.
type romeoCache struct {
	group singleflight.Group

	mu    sync.Mutex
	codes []string
	set   bool
}

type romeoRequest struct {
	Appellations []romeoAppellation `json:"appellations"`
	Options      romeoOptions       `json:"options"`
}

type romeoAppellation struct {
	Intitule    string `json:"intitule"`
	Identifiant string `json:"identifiant"`
}

type romeoOptions struct {
	NomAppelant          string  `json:"nomAppelant"`
	NbResultats          int     `json:"nbResultats"`
	SeuilScorePrediction float64 `json:"seuilScorePrediction"`
}

type romeoPrediction struct {
	MetiersRome []struct {
		CodeRome        string  `json:"codeRome"`
		LibelleRome     string  `json:"libelleRome"`
		ScorePrediction float64 `json:"scorePrediction"`
	} `json:"metiersRome"`
}

// PredictCodes maps the free-text profile to an ordered list of ROME
// occupation codes. An empty upstream result yields an empty list and no
// error; the pipeline treats that as nothing to search.
func (c *Client) PredictCodes(ctx context.Context, profileText string) ([]string, error) {
	if codes, ok := c.romeo.cached(); ok {
		return codes, nil
	}

	v, err, _ := c.romeo.group.Do("codes", func() (any, error) {
		if codes, ok := c.romeo.cached(); ok {
			return codes, nil
		}

		codes, err := c.predictCodes(ctx, profileText)
		if err != nil {
			return nil, err
		}

		c.romeo.store(codes)
		return codes, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]string), nil
}

// InvalidateCodes drops the cached prediction.
func (c *Client) InvalidateCodes() {
	c.romeo.mu.Lock()
	defer c.romeo.mu.Unlock()
	c.romeo.codes = nil
	c.romeo.set = false
}

func (c *Client) predictCodes(ctx context.Context, profileText string) ([]string, error) {
	payload := romeoRequest{
		Appellations: []romeoAppellation{{
			Intitule:    profileText,
			Identifiant: "candidate-profile",
		}},
		Options: romeoOptions{
			NomAppelant:          romeoCaller,
			NbResultats:          romeoMaxResults,
			SeuilScorePrediction: romeoMinScore,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+romeoPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("romeo prediction: bad status: %s", resp.Status)
	}

	var predictions []romeoPrediction
	if err := decodeJSON(resp, &predictions); err != nil {
		return nil, fmt.Errorf("romeo prediction: %w", err)
	}

	var codes []string
	for _, prediction := range predictions {
		for _, metier := range prediction.MetiersRome {
			codes = append(codes, metier.CodeRome)
		}
	}

	c.logger.Info("romeo prediction", zap.Strings("codes", codes))
	return codes, nil
}

func (rc *romeoCache) cached() ([]string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if !rc.set {
		return nil, false
	}
	return rc.codes, true
}

func (rc *romeoCache) store(codes []string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.codes = codes
	rc.set = true
}
