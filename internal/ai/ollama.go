package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaClient talks to a local Ollama instance. Used only for the optional
// cosmetic title rewrite; the aggregation core never depends on it.
type OllamaClient struct {
	BaseURL  string
	GenModel string
	Client   *http.Client
}

func NewOllamaClient(baseURL, genModel string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if genModel == "" {
		genModel = "llama3.2:latest"
	}
	return &OllamaClient{
		BaseURL:  baseURL,
		GenModel: genModel,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// RewriteTitle asks the model for a cleaner display title. Stateless and
// best-effort: any failure returns the original title along with the error,
// and the caller is expected to keep going.
func (c *OllamaClient) RewriteTitle(ctx context.Context, title string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite this federal contract opportunity title as a short, plain-English headline. Reply with the headline only, no quotes.\n\nTitle: %s",
		title)

	rewritten, err := c.generate(ctx, prompt)
	if err != nil {
		return title, err
	}
	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if rewritten == "" {
		return title, fmt.Errorf("model returned empty title")
	}
	return rewritten, nil
}

func (c *OllamaClient) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.GenModel,
		Prompt: prompt,
		Stream: false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status: %d", resp.StatusCode)
	}

	var parsedResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsedResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return parsedResp.Response, nil
}
