package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultGroqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// groqClient is a client for the Groq API.
type groqClient struct {
	apiKey     string
	apiURL     string
	settings   Settings
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client. An empty apiURL uses the
// public endpoint.
func NewGroqClient(apiKey, apiURL string, settings Settings) TextGenerator {
	if apiURL == "" {
		apiURL = defaultGroqAPIURL
	}
	return &groqClient{
		apiKey:   apiKey,
		apiURL:   apiURL,
		settings: settings,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateContent sends a prompt to the Groq model and returns the generated text.
func (c *groqClient) GenerateContent(ctx context.Context, req Request) (ContentResponse, error) {
	messages := make([]groqMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, groqMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, groqMessage{Role: "user", Content: req.Prompt})

	reqBody := map[string]interface{}{
		"model":       c.settings.Model,
		"messages":    messages,
		"temperature": c.settings.Temperature,
		"top_p":       c.settings.TopP,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, errorDetail(resp.Header.Get("Content-Type"), bodyBytes))
	}

	var groqResp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(groqResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	model := groqResp.Model
	if model == "" {
		model = c.settings.Model
	}
	out := ContentResponse{Content: groqResp.Choices[0].Message.Content}
	out.Usage.Model = model
	out.Usage.PromptTokens = groqResp.Usage.PromptTokens
	out.Usage.CompletionTokens = groqResp.Usage.CompletionTokens
	out.Usage.TotalTokens = groqResp.Usage.TotalTokens
	return out, nil
}

// errorDetail condenses an error body for logs. Gateways in front of the API
// answer with HTML pages; only their visible text is kept.
func errorDetail(contentType string, body []byte) string {
	if !strings.HasPrefix(contentType, "text/html") {
		return strings.TrimSpace(string(body))
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return strings.TrimSpace(string(body))
	}
	doc.Find("script, style").Remove()
	text := doc.Find("title").First().Text()
	if text == "" {
		text = doc.Find("body").Text()
	}
	return strings.Join(strings.Fields(text), " ")
}
