package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sourcegraph/conc/iter"

	"github.com/rasnes/wikiviews/config"
	"github.com/rasnes/wikiviews/transform"
)

var ErrNoPageviews = errors.New("the pageview API returned nothing useful")

type WikimediaClient struct {
	HTTPClient      *retryablehttp.Client
	Logger          *slog.Logger
	WikimediaConfig *config.WikimediaConfig
	BaseURL         string
}

// PageviewsResponse is the body of the per-article pageviews endpoint.
type PageviewsResponse struct {
	Items []PageviewsItem `json:"items"`
}

type PageviewsItem struct {
	Project   string `json:"project"`
	Article   string `json:"article"`
	Timestamp string `json:"timestamp"`
	Views     int64  `json:"views"`
}

func NewWikimediaClient(config *config.Config, logger *slog.Logger) (*WikimediaClient, error) {
	if config.Wikimedia.UserAgent == "" {
		return nil, fmt.Errorf("wikimedia.user_agent is not set, the Wikimedia API rejects anonymous clients")
	}

	client := &WikimediaClient{
		HTTPClient:      retryablehttp.NewClient(),
		Logger:          logger,
		WikimediaConfig: &config.Wikimedia,
		BaseURL:         strings.TrimSuffix(config.Wikimedia.BaseURL, "/"),
	}

	client.HTTPClient.RetryWaitMin = config.Extract.Backoff.RetryWaitMin
	client.HTTPClient.RetryWaitMax = config.Extract.Backoff.RetryWaitMax
	client.HTTPClient.RetryMax = config.Extract.Backoff.RetryMax
	client.HTTPClient.Logger = logger

	return client, nil
}

// ArticleViews fetches daily views for every article between start and end
// (YYYYMMDD, inclusive) and returns them as date -> article -> views.
// Articles without data in the range are absent from the result.
func (c *WikimediaClient) ArticleViews(ctx context.Context, project string, articles []string, start, end string) (map[string]map[string]int64, error) {
	maxGoroutines := c.WikimediaConfig.MaxConcurrency
	if maxGoroutines < 1 {
		maxGoroutines = 1
	}
	mapper := iter.Mapper[string, []PageviewsItem]{
		MaxGoroutines: maxGoroutines,
	}

	perArticle, err := mapper.MapErr(articles, func(article *string) ([]PageviewsItem, error) {
		return c.GetArticleViews(ctx, project, *article, start, end)
	})
	if err != nil {
		return nil, err
	}

	output := make(map[string]map[string]int64)
	someDataReturned := false
	for _, items := range perArticle {
		for _, item := range items {
			someDataReturned = true
			date := item.Timestamp
			if len(date) > 8 {
				date = date[:8]
			}
			if output[date] == nil {
				output[date] = make(map[string]int64)
			}
			output[date][item.Article] = item.Views
		}
	}

	if len(articles) > 0 && !someDataReturned {
		return nil, fmt.Errorf("%w for %d articles between %s and %s", ErrNoPageviews, len(articles), start, end)
	}

	return output, nil
}

// GetArticleViews fetches the daily views of one article. A 404 means the API has no
// data for the article in the range and yields no items.
func (c *WikimediaClient) GetArticleViews(ctx context.Context, project, article, start, end string) ([]PageviewsItem, error) {
	body, resp, err := c.get(ctx, c.articleURL(project, article, start, end))
	if err != nil {
		return nil, fmt.Errorf("error fetching views for article %s: %w", article, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		c.Logger.Debug("No pageviews for article", "article", article, "start", start, "end", end)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch views for article %s, status: %s, body: %s", article, resp.Status, string(body))
	}

	var parsed PageviewsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode views for article %s: %w", article, err)
	}

	return parsed.Items, nil
}

// articleURL builds the per-article endpoint. The API expects hourly timestamps,
// so the canonical dates get a "00" hour suffix.
func (c *WikimediaClient) articleURL(project, article, start, end string) string {
	return strings.Join([]string{
		c.BaseURL,
		"metrics/pageviews/per-article",
		project,
		c.WikimediaConfig.Access,
		c.WikimediaConfig.Agent,
		url.PathEscape(transform.CanonicalTitle(article)),
		"daily",
		start + "00",
		end + "00",
	}, "/")
}

// get fetches the URL and returns the body and response
func (c *WikimediaClient) get(ctx context.Context, url string) (body []byte, resp *http.Response, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", c.WikimediaConfig.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err = c.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	return body, resp, nil
}
