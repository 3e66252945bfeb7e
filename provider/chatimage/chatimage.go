package chatimage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"picmagic/models"
	"picmagic/provider"
	"picmagic/styles"
)

const (
	defaultBaseURL = "https://ai.comfly.chat"
	chatModel      = "gpt-4o-image"
)

// Result images arrive either as markdown image links inside the reply
// text or as structured image_url entries; this matches the former.
var imageLinkRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+\.(?:png|jpe?g|gif|webp))\)`)

// Provider stylizes images through a chat-completions multimodal API: one
// POST embedding the instruction text and the image reference, reply
// parsed for result image links.
type Provider struct {
	baseURL string
	client  *http.Client
	styles  *styles.Table
	logger  *zap.Logger
}

func New(baseURL string, table *styles.Table, logger *zap.Logger) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		styles:  table,
		logger:  logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *Provider) Stylize(ctx context.Context, req provider.Request) (*models.StylizeResult, error) {
	if req.APIKey == "" {
		return nil, provider.ErrMissingCredential
	}

	body := chatRequest{
		Model:  chatModel,
		Stream: false,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: p.styles.PromptFor(req.Style)},
					{Type: "image_url", ImageURL: &imageRef{URL: req.ImageURL}},
				},
			},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	p.logger.Info("Calling chat image API",
		zap.String("url", httpReq.URL.String()),
		zap.String("style", req.Style),
	)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat image request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat image response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &provider.UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat image response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, provider.ErrNoImageInResponse
	}

	urls := extractImageURLs(parsed.Choices[0].Message.Content)
	if len(urls) == 0 {
		return nil, provider.ErrNoImageInResponse
	}

	p.logger.Info("Chat image API returned images", zap.Int("count", len(urls)))

	return &models.StylizeResult{
		PreviewURL: urls[0],
		ImageURLs:  urls,
		StyleName:  p.styles.DisplayName(req.Style),
	}, nil
}

// extractImageURLs handles both reply shapes: a plain string with markdown
// image links, or a content list with image_url entries. Document order is
// preserved.
func extractImageURLs(content json.RawMessage) []string {
	var urls []string

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		for _, match := range imageLinkRe.FindAllStringSubmatch(text, -1) {
			urls = append(urls, match[1])
		}
		return urls
	}

	var parts []contentPart
	if err := json.Unmarshal(content, &parts); err == nil {
		for _, part := range parts {
			if part.Type == "image_url" && part.ImageURL != nil && part.ImageURL.URL != "" {
				urls = append(urls, part.ImageURL.URL)
			}
		}
	}
	return urls
}
