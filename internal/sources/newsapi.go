package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
)

// SourceNews is the source name stamped on NewsAPI records.
const SourceNews = "NewsAPI"

// NewsAdapter queries the NewsAPI everything endpoint.
type NewsAdapter struct {
	apiKey  string
	baseURL string
	clock   clockwork.Clock
	req     *requester
}

type newsResponse struct {
	Status       string `json:"status"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func NewNewsAdapter(cfg config.NewsConfig, opts Options) *NewsAdapter {
	opts = opts.withDefaults()
	return &NewsAdapter{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		clock:   opts.Clock,
		req:     newRequester(SourceNews, cfg.Cooldown, opts),
	}
}

func (a *NewsAdapter) Name() string     { return SourceNews }
func (a *NewsAdapter) Configured() bool { return a.apiKey != "" }

// Fetch pages by number until the limit is met or a page comes back short.
// The page size stays fixed across requests since the provider offsets pages
// by page times size.
func (a *NewsAdapter) Fetch(ctx context.Context, query string, limit int) ([]domain.RawRecord, error) {
	if !a.Configured() || limit <= 0 {
		return nil, nil
	}

	pageSize := min(100, limit)
	var out []domain.RawRecord
	for page := 1; len(out) < limit; page++ {
		params := url.Values{}
		params.Set("q", query)
		params.Set("pageSize", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))
		params.Set("sortBy", "publishedAt")
		params.Set("language", "en")
		endpoint := a.baseURL + "/v2/everything?" + params.Encode()

		var resp newsResponse
		err := a.req.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("X-Api-Key", a.apiKey)
			return req, nil
		}, &resp)
		if err != nil {
			return nil, err
		}
		if len(resp.Articles) == 0 {
			break
		}

		for _, article := range resp.Articles {
			out = append(out, domain.RawRecord{
				Text:      articleText(article.Description, article.Content, article.Title),
				Source:    SourceNews,
				Timestamp: parseTimestamp(article.PublishedAt, a.clock),
			})
			if len(out) >= limit {
				break
			}
		}
		if len(resp.Articles) < pageSize {
			break
		}
	}
	return out, nil
}

func articleText(description, content, title string) string {
	for _, candidate := range []string{description, content} {
		if s := plainText(candidate); s != "" {
			return s
		}
	}
	return plainText(title)
}
