package extract

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

const (
	minContentLength = 100
	maxBodyBytes     = 5 << 20
	defaultTimeout   = 30 * time.Second
)

var (
	noiseSelectors   = "script, style, nav, header, footer, aside, .ads, .advertisement"
	contentSelectors = []string{"article", ".article-content", ".post-content", "main", ".content"}
)

type Article struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Description string     `json:"description"`
	Author      string     `json:"author,omitempty"`
	Image       string     `json:"image,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

type Extractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Extractor{httpClient: httpClient, userAgent: userAgent}
}

// Extract downloads rawURL and pulls the main article out of it. It returns
// nil without an error when the URL is malformed, the page cannot be fetched
// or nothing readable is found.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Article, error) {
	pageURL, ok := parseArticleURL(rawURL)
	if !ok {
		return nil, nil
	}

	data, err := e.fetch(ctx, rawURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Article fetch failed", "url", rawURL, "error", err)
		return nil, nil
	}

	article := fromReadability(data, pageURL)
	if article == nil || len(article.Content) < minContentLength {
		slog.Debug("Falling back to DOM extraction", "url", rawURL)
		if fallback := fromDocument(data); fallback != nil {
			article = fallback
		}
	}
	if article == nil {
		return nil, nil
	}

	article.URL = rawURL
	return article, nil
}

// ExtractBatch extracts urls in order, leaving out the ones that yield nothing.
func (e *Extractor) ExtractBatch(ctx context.Context, urls []string) ([]Article, error) {
	articles := make([]Article, 0, len(urls))
	for _, u := range urls {
		article, err := e.Extract(ctx, u)
		if err != nil {
			return articles, err
		}
		if article != nil {
			articles = append(articles, *article)
		}
	}
	return articles, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	return data, nil
}

func parseArticleURL(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	return u, true
}

func fromReadability(data []byte, pageURL *url.URL) *Article {
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil || article.Node == nil {
		return nil
	}

	content := ""
	if md, err := htmltomarkdown.ConvertNode(article.Node); err == nil {
		content = strings.TrimSpace(string(md))
	}
	if content == "" {
		var buf bytes.Buffer
		if err := article.RenderText(&buf); err == nil {
			content = strings.TrimSpace(buf.String())
		}
	}

	result := &Article{
		Title:       strings.TrimSpace(article.Title()),
		Content:     content,
		Description: strings.TrimSpace(article.Excerpt()),
		Author:      strings.TrimSpace(article.Byline()),
		Image:       article.ImageURL(),
	}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data)); err == nil {
		result.PublishedAt = publishedTime(doc)
	}

	return result
}

func fromDocument(data []byte) *Article {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	published := publishedTime(doc)
	doc.Find(noiseSelectors).Remove()

	title := cmp.Or(strings.TrimSpace(doc.Find("h1").First().Text()), strings.TrimSpace(doc.Find("title").First().Text()))
	description := cmp.Or(metaContent(doc, `meta[name="description"]`), metaContent(doc, `meta[property="og:description"]`))
	image := metaContent(doc, `meta[property="og:image"]`)
	if image == "" {
		image, _ = doc.Find("article img").First().Attr("src")
	}
	author := cmp.Or(metaContent(doc, `meta[name="author"]`), strings.TrimSpace(doc.Find(".author").First().Text()))

	content := ""
	for _, selector := range contentSelectors {
		sel := doc.Find(selector)
		if sel.Length() > 0 && len(sel.Text()) > minContentLength {
			content = strings.TrimSpace(sel.Text())
			break
		}
	}
	if content == "" {
		paragraphs := doc.Find("p").Map(func(_ int, s *goquery.Selection) string {
			return s.Text()
		})
		content = strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
	}

	return &Article{
		Title:       title,
		Content:     content,
		Description: description,
		Author:      author,
		Image:       strings.TrimSpace(image),
		PublishedAt: published,
	}
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func publishedTime(doc *goquery.Document) *time.Time {
	raw := metaContent(doc, `meta[property="article:published_time"]`)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
