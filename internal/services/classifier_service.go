// internal/services/classifier_service.go
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/artdrm/artdrm-backend/internal/config"
)

// Classification labels. Anything a provider returns is folded into one
// of these two.
const (
	LabelAI   = "ai"
	LabelReal = "real"
)

const classifierPrompt = "Is this image AI-generated or a real photograph/human-made artwork? Answer with exactly one word: 'ai' or 'real'."

// Classifier decides whether an image is AI-generated.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, imageData []byte) (string, error)
}

// ClassifierChain tries providers in a fixed order. A provider error
// moves on to the next; Classify only fails when every provider fails.
type ClassifierChain struct {
	classifiers []Classifier
}

func NewClassifierChain(cfg config.ClassifierConfig) *ClassifierChain {
	chain := &ClassifierChain{}

	if !cfg.Enabled {
		return chain
	}

	if cfg.GeminiAPIKey != "" {
		chain.classifiers = append(chain.classifiers, newGeminiClassifier(cfg.GeminiAPIKey))
	}
	if cfg.OpenAIAPIKey != "" {
		chain.classifiers = append(chain.classifiers, newOpenAIClassifier(cfg.OpenAIAPIKey))
	}
	if cfg.GroqAPIKey != "" {
		chain.classifiers = append(chain.classifiers, newGroqClassifier(cfg.GroqAPIKey))
	}

	return chain
}

// NewClassifierChainFrom builds a chain over explicit classifiers,
// used by tests.
func NewClassifierChainFrom(classifiers ...Classifier) *ClassifierChain {
	return &ClassifierChain{classifiers: classifiers}
}

// Empty reports whether classification is disabled entirely.
func (c *ClassifierChain) Empty() bool {
	return len(c.classifiers) == 0
}

// Classify returns the first provider's verdict along with the provider
// name. When every provider fails the last error is returned.
func (c *ClassifierChain) Classify(ctx context.Context, imageData []byte) (label, provider string, err error) {
	var lastErr error

	for _, classifier := range c.classifiers {
		label, err := classifier.Classify(ctx, imageData)
		if err != nil {
			logrus.WithError(err).WithField("provider", classifier.Name()).
				Warn("Classifier provider failed, trying next")
			lastErr = err
			continue
		}
		return label, classifier.Name(), nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no classifier providers configured")
	}
	return "", "", lastErr
}

func normalizeLabel(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(cleaned, LabelAI) && !strings.Contains(cleaned, LabelReal) {
		return LabelAI
	}
	return LabelReal
}

// geminiClassifier calls the Gemini generateContent endpoint with inline
// image data.
type geminiClassifier struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newGeminiClassifier(apiKey string) *geminiClassifier {
	return &geminiClassifier{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *geminiClassifier) Name() string { return "gemini" }

func (g *geminiClassifier) Classify(ctx context.Context, imageData []byte) (string, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{{
			"parts": []map[string]interface{}{
				{"text": classifierPrompt},
				{"inline_data": map[string]string{
					"mime_type": "image/png",
					"data":      base64.StdEncoding.EncodeToString(imageData),
				}},
			},
		}},
	}

	body, err := postJSON(ctx, g.client, g.baseURL+"?key="+g.apiKey, nil, payload)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("gemini: decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}

	return normalizeLabel(out.Candidates[0].Content.Parts[0].Text), nil
}

// openaiClassifier and groqClassifier share the chat-completions wire
// format; Groq is OpenAI-compatible.
type chatClassifier struct {
	name    string
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func newOpenAIClassifier(apiKey string) *chatClassifier {
	return &chatClassifier{
		name:    "openai",
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1/chat/completions",
		model:   "gpt-4o-mini",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func newGroqClassifier(apiKey string) *chatClassifier {
	return &chatClassifier{
		name:    "groq",
		apiKey:  apiKey,
		baseURL: "https://api.groq.com/openai/v1/chat/completions",
		model:   "llama-3.2-11b-vision-preview",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *chatClassifier) Name() string { return c.name }

func (c *chatClassifier) Classify(ctx context.Context, imageData []byte) (string, error) {
	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)

	payload := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]interface{}{{
			"role": "user",
			"content": []map[string]interface{}{
				{"type": "text", "text": classifierPrompt},
				{"type": "image_url", "image_url": map[string]string{"url": imageURL}},
			},
		}},
		"max_tokens": 10,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	body, err := postJSON(ctx, c.client, c.baseURL, headers, payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%s: decode: %w", c.name, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", c.name)
	}

	return normalizeLabel(out.Choices[0].Message.Content), nil
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}

	return buf.Bytes(), nil
}
