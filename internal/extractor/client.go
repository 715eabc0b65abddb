// Package extractor реализует клиент извлечения данных счёта из переписок
// и скриншотов через OpenAI chat completions. Результат модели — лишь
// подсказки для предзаполнения, а не проверенные данные.
package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/invoiq/invoiq/internal/models"
)

const promptSystem = "You extract structured invoice/job details from chat text or images. " +
	"Return only JSON with keys: jobs (list of strings), deadlines (list of ISO dates or strings), " +
	"payment_terms (string|null), amount (number|null), currency (string|null), " +
	"client_name (string|null), client_email (string|null), client_address (string|null), " +
	"confidence (0-100)."

const promptUserTemplate = "Given the following chat text, extract the requested fields. " +
	"If not found, use nulls or empty arrays.\n\nChat text:\n\n%s"

// Client — клиент OpenAI chat completions в режиме JSON-ответов.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	httpClient *http.Client
}

// New создаёт клиент экстрактора. Пустой baseURL заменяется боевым
// адресом API; пустой apiKey переводит клиент в режим заглушки.
func New(apiKey, model, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		apiURL:     baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    int           `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

// fallback возвращает минимальную форму результата, когда модель
// недоступна или ответила не-JSON содержимым.
func fallback(text string) *models.ParsedExtraction {
	parsed := &models.ParsedExtraction{
		Jobs:       []string{},
		Deadlines:  []string{},
		Confidence: 50,
	}
	if text != "" {
		snippet := text
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		parsed.Jobs = []string{snippet}
	}
	return parsed
}

// Extract выполняет единый запрос для текста и/или изображения.
// Изображение передаётся data-URL внутри мультимодального сообщения,
// OCR выполняет сама модель.
func (c *Client) Extract(ctx context.Context, text string, imageBytes []byte, imageMime string) (*models.ParsedExtraction, error) {
	const op = "extractor.Extract"

	if c.apiKey == "" {
		return fallback(text), nil
	}

	var userContent any
	if len(imageBytes) > 0 {
		parts := []contentPart{}
		if text != "" {
			parts = append(parts, contentPart{
				Type: "text",
				Text: fmt.Sprintf(promptUserTemplate, text),
			})
		}
		mime := imageMime
		if mime == "" {
			mime = "image/png"
		}
		b64 := base64.StdEncoding.EncodeToString(imageBytes)
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &struct {
				URL string `json:"url"`
			}{URL: "data:" + mime + ";base64," + b64},
		})
		userContent = parts
	} else {
		userContent = fmt.Sprintf(promptUserTemplate, text)
	}

	reqBody := chatRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: promptSystem},
			{Role: "user", Content: userContent},
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty choices in response", op)
	}

	var parsed models.ParsedExtraction
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &parsed); err != nil {
		return fallback(text), nil
	}
	if parsed.Jobs == nil {
		parsed.Jobs = []string{}
	}
	if parsed.Deadlines == nil {
		parsed.Deadlines = []string{}
	}
	return &parsed, nil
}
