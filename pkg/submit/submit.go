// Package submit sends a stitched composite and user text to the analysis
// endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/menta2k/multishot-scanner/internal/utils"
	"github.com/menta2k/multishot-scanner/pkg/processing"
	"github.com/menta2k/multishot-scanner/pkg/types"
)

var (
	// ErrEmptyText is returned before any request when the text is blank
	ErrEmptyText = errors.New("submit: text is empty")
	// ErrSubmissionFailed wraps transport failures and non-2xx responses
	ErrSubmissionFailed = errors.New("submit: submission failed")
)

// TimestampLayout is ISO-8601 UTC with milliseconds
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Result is the endpoint's response
type Result struct {
	StatusCode int
	Raw        json.RawMessage
	Pretty     string
}

// Client posts submissions to one endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	processor  *processing.Processor
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a client for endpoint with a 5 minute timeout
func New(endpoint string) *Client {
	return NewWithConfig(endpoint, &http.Client{Timeout: 300 * time.Second}, nil, nil)
}

// NewWithConfig creates a client with a custom HTTP client, processor and logger
func NewWithConfig(endpoint string, httpClient *http.Client, processor *processing.Processor, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 300 * time.Second}
	}
	if processor == nil {
		processor = processing.NewProcessor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		processor:  processor,
		logger:     logger,
		now:        time.Now,
	}
}

// Endpoint returns the URL submissions are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Build encodes the composite as a JPEG data URL and assembles the payload
func (c *Client) Build(composite image.Image, text string, imageCount int) (types.Submission, error) {
	if strings.TrimSpace(text) == "" {
		return types.Submission{}, ErrEmptyText
	}
	data, err := c.processor.EncodeAs(composite, "jpg")
	if err != nil {
		return types.Submission{}, fmt.Errorf("failed to encode composite: %w", err)
	}
	return types.Submission{
		Image:      utils.EncodeDataURL(data, "jpg"),
		Text:       text,
		Timestamp:  c.now().UTC().Format(TimestampLayout),
		ImageCount: imageCount,
	}, nil
}

// Submit posts the composite and text. The request is made once; failures are
// reported, not retried.
func (c *Client) Submit(ctx context.Context, composite image.Image, text string, imageCount int) (*Result, error) {
	sub, err := c.Build(composite, text, imageCount)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, sub)
}

// Send posts an already-built submission
func (c *Client) Send(ctx context.Context, sub types.Submission) (*Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("submitting composite",
		"endpoint", c.endpoint,
		"images", sub.ImageCount,
		"payload", humanize.Bytes(uint64(len(body))))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrSubmissionFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrSubmissionFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: response is not JSON: %v", ErrSubmissionFailed, err)
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Raw:        json.RawMessage(raw),
		Pretty:     pretty.String(),
	}, nil
}
