// Package voyage is a client for the VoyageAI embeddings and rerank
// endpoints.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL = "https://api.voyageai.com/v1"

	defaultEmbeddingModel = "voyage-3"
	defaultRerankModel    = "rerank-2"

	// The embeddings endpoint caps inputs per request; larger batches are
	// split and the vectors concatenated in order.
	maxEmbedBatch = 128
)

type Client struct {
	apiKey string
	logger *zap.Logger

	HTTPClient     *http.Client
	APIURL         string
	EmbeddingModel string
	RerankModel    string
}

// New creates a Voyage client with the default models.
func New(logger *zap.Logger, apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		logger: logger,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		EmbeddingModel: defaultEmbeddingModel,
		RerankModel:    defaultRerankModel,
	}
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	payload := map[string]any{
		"input": texts,
		"model": c.EmbeddingModel,
	}

	var response struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/embeddings", payload, &response); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(response.Data), len(texts))
	}

	vectors := make([][]float64, len(response.Data))
	for i, item := range response.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

// Reranking is one rerank result: the index of the document in the request
// and its relevance score, sorted by relevance upstream.
type Reranking struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Rerank orders documents by relevance to the query, capped at topK results.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topK int) ([]Reranking, error) {
	payload := map[string]any{
		"query":     query,
		"documents": documents,
		"model":     c.RerankModel,
		"top_k":     topK,
	}

	var response struct {
		Data []Reranking `json:"data"`
	}
	if err := c.post(ctx, "/rerank", payload, &response); err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	c.logger.Debug("rerank complete", zap.Int("documents", len(documents)), zap.Int("results", len(response.Data)))
	return response.Data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s: %s", resp.Status, truncate(string(data), 200))
	}

	return json.Unmarshal(data, target)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
