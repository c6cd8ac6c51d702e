package sources

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/utils"
)

const (
	userAgent       = "spigell/job-alert"
	accept          = "application/json, text/plain, */*"
	contentEncoding = "gzip"
	requestAttempts = 2
	retryBackoff    = 150 * time.Millisecond
)

// Client performs GET requests against public job APIs.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	logger     *zap.Logger
}

func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		logger:     logger,
	}
}

// getJSON decodes the response body into target. Transport errors and 5xx answers are retried once.
func (c *Client) getJSON(ctx context.Context, rawURL string, q url.Values, target any) error {
	var lastErr error
	for attempt := 1; attempt <= requestAttempts; attempt++ {
		retry, err := c.get(ctx, rawURL, q, target)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == requestAttempts {
			break
		}
		if err := utils.WaitFor(ctx, retryBackoff*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) get(ctx context.Context, rawURL string, q url.Values, target any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Encoding", contentEncoding)
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return false, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return true, err
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode >= http.StatusInternalServerError, fmt.Errorf("bad status: %s", resp.Status)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return false, nil
}

// decode maps loosely typed JSON values onto a struct using its json tags.
func decode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
