package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultFetchTimeout = 10 * time.Second

// Reader downloads and parses a single feed URL.
type Reader struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
}

func NewReader(httpClient *http.Client, userAgent string) *Reader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Reader{
		httpClient: httpClient,
		parser:     NewParser(),
		userAgent:  userAgent,
		timeout:    DefaultFetchTimeout,
	}
}

func (r *Reader) Fetch(ctx context.Context, url string) ([]Item, *Metadata, error) {
	data, err := r.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	metadata, items, err := r.parser.Run(data)
	if err != nil {
		return nil, nil, &ParseError{URL: url, Err: err}
	}

	return items, metadata, nil
}

func (r *Reader) fetch(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP error: %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, nil
}
