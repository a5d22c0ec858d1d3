package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/babelchat/server/internal/types"
)

// GoogleProvider calls the Google Cloud Translation v2 REST endpoint.
type GoogleProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewGoogleProvider(endpoint, apiKey string) *GoogleProvider {
	return &GoogleProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type googleRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (g *GoogleProvider) TranslateOne(ctx context.Context, text string, from, to types.Language) (string, error) {
	body, err := json.Marshal(googleRequest{
		Q:      text,
		Source: string(from),
		Target: string(to),
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqURL := g.endpoint
	if g.apiKey != "" {
		reqURL += "?key=" + url.QueryEscape(g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", from, to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate %s->%s: unexpected status %d", from, to, resp.StatusCode)
	}

	var decoded googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Data.Translations) == 0 {
		return "", fmt.Errorf("translate %s->%s: empty response", from, to)
	}

	return decoded.Data.Translations[0].TranslatedText, nil
}
