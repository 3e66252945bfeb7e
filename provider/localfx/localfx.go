package localfx

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"picmagic/models"
	"picmagic/provider"
	"picmagic/styles"
)

// Provider is the development backend: it downloads the source image,
// applies a preset filter locally and serves the result from the output
// directory. No upstream credential is required.
type Provider struct {
	outputDir     string
	publicBaseURL string
	client        *http.Client
	styles        *styles.Table
	logger        *zap.Logger
}

func New(outputDir, publicBaseURL string, table *styles.Table, logger *zap.Logger) *Provider {
	return &Provider{
		outputDir:     outputDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		client:        &http.Client{Timeout: 30 * time.Second},
		styles:        table,
		logger:        logger,
	}
}

func (p *Provider) Stylize(ctx context.Context, req provider.Request) (*models.StylizeResult, error) {
	src, err := p.downloadSource(ctx, req.ImageURL)
	if err != nil {
		return nil, err
	}

	processed := applyEffect(src, req.Style)

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	name := uuid.New().String() + ".png"
	path := filepath.Join(p.outputDir, name)
	if err := imaging.Save(processed, path); err != nil {
		return nil, fmt.Errorf("save stylized image: %w", err)
	}

	resultURL := p.publicBaseURL + "/outputs/" + name
	p.logger.Info("Applied local effect",
		zap.String("style", req.Style),
		zap.String("output", path),
	)

	return &models.StylizeResult{
		PreviewURL: resultURL,
		ImageURLs:  []string{resultURL},
		StyleName:  p.styles.DisplayName(req.Style),
	}, nil
}

func (p *Provider) downloadSource(ctx context.Context, imageURL string) (image.Image, error) {
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

	src, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	return src, nil
}

// applyEffect is a rough local stand-in for the real providers. Unknown
// styles pass the image through unchanged.
func applyEffect(src image.Image, style string) *image.NRGBA {
	switch style {
	case "sketch":
		return imaging.Sharpen(imaging.Grayscale(src), 1.5)
	case "watercolor":
		return imaging.Blur(imaging.AdjustSaturation(src, 20), 1.2)
	case "oil_painting":
		return imaging.AdjustSaturation(imaging.Blur(src, 0.8), 15)
	case "vintage":
		return imaging.AdjustSaturation(imaging.AdjustGamma(src, 0.9), -30)
	case "cyberpunk":
		return imaging.AdjustContrast(imaging.AdjustSaturation(src, 40), 20)
	case "modern":
		return imaging.AdjustContrast(imaging.Grayscale(src), 30)
	default:
		return imaging.Clone(src)
	}
}
