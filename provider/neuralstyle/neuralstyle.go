package neuralstyle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"picmagic/models"
	"picmagic/provider"
	"picmagic/styles"
)

const (
	defaultBaseURL      = "https://neuralstyle.art"
	defaultPollAttempts = 30
	defaultPollDelay    = 2 * time.Second
)

// Provider drives a neural style-transfer SaaS. Submission is a multipart
// form upload; results usually arrive through a provider-side job that has
// to be polled. Exhausting the poll budget surfaces ErrStillProcessing,
// never a failure.
type Provider struct {
	baseURL      string
	client       *http.Client
	styles       *styles.Table
	logger       *zap.Logger
	pollAttempts int
	pollDelay    time.Duration
}

func New(baseURL string, table *styles.Table, logger *zap.Logger) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 60 * time.Second},
		styles:       table,
		logger:       logger,
		pollAttempts: defaultPollAttempts,
		pollDelay:    defaultPollDelay,
	}
}

type submitResponse struct {
	Result      string `json:"result"`
	URL         string `json:"url"`
	FilterJobID int64  `json:"filterjob_id"`
}

type jobResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Progress int    `json:"progress"`
}

func (p *Provider) Stylize(ctx context.Context, req provider.Request) (*models.StylizeResult, error) {
	if req.APIKey == "" {
		return nil, provider.ErrMissingCredential
	}

	photo, err := p.downloadSource(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}

	styleID := req.Style
	if d, ok := p.styles.Lookup(req.Style); ok && d.PresetKey != "" {
		styleID = d.PresetKey
	}

	raw, status, err := p.submitJob(ctx, photo, styleID, req.APIKey)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &provider.UpstreamError{StatusCode: status, Body: string(raw)}
	}

	var submitted submitResponse
	if err := json.Unmarshal(raw, &submitted); err != nil {
		return nil, fmt.Errorf("decode style transfer response: %w", err)
	}
	if submitted.Result != "OK" {
		return nil, fmt.Errorf("style transfer job rejected: %s", string(raw))
	}

	displayName := p.styles.DisplayName(req.Style)

	// Some jobs finish synchronously.
	if submitted.URL != "" {
		return &models.StylizeResult{
			PreviewURL: submitted.URL,
			ImageURLs:  []string{submitted.URL},
			StyleName:  displayName,
		}, nil
	}

	if submitted.FilterJobID == 0 {
		return nil, provider.ErrNoImageInResponse
	}

	return p.pollJob(ctx, submitted.FilterJobID, req.APIKey, displayName)
}

func (p *Provider) downloadSource(ctx context.Context, imageURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build source image request: %w", err)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download source image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download source image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *Provider) submitJob(ctx context.Context, photo []byte, styleID, apiKey string) ([]byte, int, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("photo", "image.png")
	if err != nil {
		return nil, 0, fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return nil, 0, fmt.Errorf("write photo field: %w", err)
	}
	if err := form.WriteField("api_key", apiKey); err != nil {
		return nil, 0, fmt.Errorf("write api_key field: %w", err)
	}
	if err := form.WriteField("style_id", styleID); err != nil {
		return nil, 0, fmt.Errorf("write style_id field: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, 0, fmt.Errorf("close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api.json", &buf)
	if err != nil {
		return nil, 0, fmt.Errorf("build style transfer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	p.logger.Info("Submitting style transfer job", zap.String("style_id", styleID))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("style transfer request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read style transfer response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// pollJob queries the provider-side job on a fixed delay up to the attempt
// budget. A single failed poll attempt is tolerated and retried; the job
// keeps running upstream either way.
func (p *Provider) pollJob(ctx context.Context, jobID int64, apiKey, displayName string) (*models.StylizeResult, error) {
	pollURL := fmt.Sprintf("%s/api/%d.json?api_key=%s", p.baseURL, jobID, url.QueryEscape(apiKey))

	for attempt := 1; attempt <= p.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.pollDelay):
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build job poll request: %w", err)
		}
		httpReq.Header.Set("Accept", "application/json")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			p.logger.Warn("Job poll attempt failed",
				zap.Int64("job_id", jobID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			p.logger.Warn("Job poll attempt failed",
				zap.Int64("job_id", jobID),
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode),
			)
			continue
		}

		var job jobResponse
		if err := json.Unmarshal(raw, &job); err != nil {
			continue
		}

		if job.Status == "done" && job.URL != "" {
			return &models.StylizeResult{
				PreviewURL: job.URL,
				ImageURLs:  []string{job.URL},
				StyleName:  displayName,
			}, nil
		}

		p.logger.Info("Style transfer job in progress",
			zap.Int64("job_id", jobID),
			zap.Int("attempt", attempt),
			zap.Int("progress", job.Progress),
		)
	}

	return nil, provider.ErrStillProcessing
}
