package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kitgore/lyrictype-sub002/common/compress"
	"github.com/kitgore/lyrictype-sub002/common/models"
)

// ProcessorClient handles communication with the image processing
// service. The client owns the wire contract: it decodes and validates
// the payload before handing it to the cache, so a malformed response
// never gets persisted.
type ProcessorClient struct {
	baseURL string
	http    *HTTPClient
	logger  Logger
}

// NewProcessorClient creates a new processor client
func NewProcessorClient(baseURL string, timeout time.Duration, logger Logger) *ProcessorClient {
	httpClient := &http.Client{
		Timeout: timeout,
	}

	return &ProcessorClient{
		baseURL: baseURL,
		http:    NewHTTPClient(httpClient, logger),
		logger:  logger,
	}
}

// ProcessedImage is a decoded processing result: the raw packed payload
// plus the wire response describing it.
type ProcessedImage struct {
	Data     []byte
	Response models.ProcessResponse
}

// Process sends one image through the remote processor, then decodes
// and validates the returned payload against its declared version and
// dimensions.
func (c *ProcessorClient) Process(ctx context.Context, req models.ProcessRequest) (*ProcessedImage, error) {
	c.logger.Info("requesting image processing", "key", req.Key, "url", req.URL, "mode", req.Mode)

	url := fmt.Sprintf("%s/api/v1/process", c.baseURL)
	resp, err := c.http.PostJSON(ctx, url, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call processor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("processing request failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var pr models.ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode processor response: %w", err)
	}

	if pr.Width < 1 || pr.Height < 1 {
		return nil, fmt.Errorf("processor returned invalid dimensions %dx%d", pr.Width, pr.Height)
	}

	want, ok := models.PayloadSize(pr.ProcessingVersion, pr.Width, pr.Height)
	if !ok {
		return nil, fmt.Errorf("processor returned unknown version %q", pr.ProcessingVersion)
	}

	data, err := compress.DecodePayload(pr.ImageData, pr.CompressionMethod == models.CompressionDeflate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode processor payload: %w", err)
	}
	if len(data) != want {
		return nil, fmt.Errorf("processor payload is %d bytes, want %d for %dx%d %s",
			len(data), want, pr.Width, pr.Height, pr.ProcessingVersion)
	}

	c.logger.Info("image processed",
		"key", req.Key,
		"width", pr.Width,
		"height", pr.Height,
		"version", pr.ProcessingVersion,
		"payload_bytes", len(data))

	return &ProcessedImage{Data: data, Response: pr}, nil
}
