// Package newsapi is a thin client for the NewsAPI /v2/everything endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"newswatch/internal/monitor"
)

var (
	ErrNotConfigured = errors.New("newsapi key not configured")
	ErrSearch        = errors.New("newsapi search failed")
)

const defaultBaseURL = "https://newsapi.org/v2/everything"

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Query holds the parameters for one Everything call.
type Query struct {
	Text     string
	From     time.Time
	To       time.Time
	Language string
	SortBy   string
	Page     int
	PageSize int
}

// Response is the decoded API payload.
type Response struct {
	TotalResults int
	Articles     []monitor.Article
}

type apiArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Everything calls /v2/everything with the full parameter set.
func (c *Client) Everything(ctx context.Context, q Query) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("apiKey", c.apiKey)
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "publishedAt"
	}
	params.Set("sortBy", sortBy)
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	params.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	defer resp.Body.Close()

	var body struct {
		Status       string       `json:"status"`
		Code         string       `json:"code"`
		Message      string       `json:"message"`
		TotalResults int          `json:"totalResults"`
		Articles     []apiArticle `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearch, err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return nil, fmt.Errorf("%w: status %d code %q: %s", ErrSearch, resp.StatusCode, body.Code, body.Message)
	}

	articles := make([]monitor.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		articles = append(articles, monitor.Article{
			URL:         a.URL,
			Title:       a.Title,
			Description: a.Description,
			Content:     a.Content,
			PublishedAt: a.PublishedAt,
			SourceName:  a.Source.Name,
		})
	}

	return &Response{TotalResults: body.TotalResults, Articles: articles}, nil
}

// Search is the monitor-facing entry point: first page of results for a
// time window, in the API's default publishedAt order.
func (c *Client) Search(ctx context.Context, query string, from, to time.Time, language string) ([]monitor.Article, error) {
	res, err := c.Everything(ctx, Query{
		Text:     query,
		From:     from,
		To:       to,
		Language: language,
	})
	if err != nil {
		return nil, err
	}
	return res.Articles, nil
}

// hardCap bounds how deep PickRandom pages into results; the API only
// exposes the first ~100 anyway.
const hardCap = 100

// PickRandom returns a uniformly random article from the window, or nil
// when the window is empty. Used by the notification test endpoint.
func (c *Client) PickRandom(ctx context.Context, query string, from, to time.Time, language string) (*monitor.Article, error) {
	meta, err := c.Everything(ctx, Query{
		Text: query, From: from, To: to, Language: language,
		Page: 1, PageSize: 1,
	})
	if err != nil {
		return nil, err
	}
	if meta.TotalResults <= 0 {
		return nil, nil
	}

	total := meta.TotalResults
	if total > hardCap {
		total = hardCap
	}

	const pageSize = 20
	idx := rand.Intn(total)
	page := idx/pageSize + 1

	batch, err := c.Everything(ctx, Query{
		Text: query, From: from, To: to, Language: language,
		Page: page, PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}
	if len(batch.Articles) == 0 {
		return nil, nil
	}

	a := batch.Articles[idx%pageSize%len(batch.Articles)]
	return &a, nil
}
