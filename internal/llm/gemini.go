package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VisionModel is the capability surface the autonomous agent consumes: plain
// generation plus a screenshot-grounded variant. Implementations are explicit
// adapter types carrying their provider identity; no runtime delegation.
type VisionModel interface {
	Provider() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateVision(ctx context.Context, prompt string, imagePNG []byte) (string, error)
}

// GeminiClient adapts the Gemini generateContent REST API to VisionModel.
type GeminiClient struct {
	provider   string
	apiKey     string
	httpClient *http.Client
	model      string
	baseURL    string
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlobPart `json:"inline_data,omitempty"`
}

type geminiBlobPart struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		provider: "gemini",
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com",
	}
}

func (c *GeminiClient) Provider() string { return c.provider }

func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, []geminiPart{{Text: prompt}})
}

func (c *GeminiClient) GenerateVision(ctx context.Context, prompt string, imagePNG []byte) (string, error) {
	parts := []geminiPart{
		{Text: prompt},
		{InlineData: &geminiBlobPart{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(imagePNG),
		}},
	}
	return c.generate(ctx, parts)
}

func (c *GeminiClient) generate(ctx context.Context, parts []geminiPart) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response generated")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
