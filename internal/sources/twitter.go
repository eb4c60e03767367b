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

// SourceTwitter is the source name stamped on Twitter records.
const SourceTwitter = "Twitter"

// TwitterAdapter searches recent tweets with an app bearer token.
type TwitterAdapter struct {
	token   string
	baseURL string
	clock   clockwork.Clock
	req     *requester
}

type twitterSearchResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		CreatedAt string `json:"created_at"`
		AuthorID  string `json:"author_id"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Location string `json:"location"`
		} `json:"users"`
	} `json:"includes"`
	Meta struct {
		NextToken   string `json:"next_token"`
		ResultCount int    `json:"result_count"`
	} `json:"meta"`
}

func NewTwitterAdapter(cfg config.TwitterConfig, opts Options) *TwitterAdapter {
	opts = opts.withDefaults()
	return &TwitterAdapter{
		token:   strings.TrimSpace(cfg.BearerToken),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		clock:   opts.Clock,
		req:     newRequester(SourceTwitter, cfg.Cooldown, opts),
	}
}

func (a *TwitterAdapter) Name() string     { return SourceTwitter }
func (a *TwitterAdapter) Configured() bool { return a.token != "" }

// Fetch pages through /2/tweets/search/recent, newest first.
func (a *TwitterAdapter) Fetch(ctx context.Context, query string, limit int) ([]domain.RawRecord, error) {
	if !a.Configured() || limit <= 0 {
		return nil, nil
	}

	var out []domain.RawRecord
	nextToken := ""
	for len(out) < limit {
		params := url.Values{}
		params.Set("query", query)
		params.Set("max_results", strconv.Itoa(min(100, max(10, limit-len(out)))))
		params.Set("tweet.fields", "created_at,geo,author_id")
		params.Set("expansions", "author_id")
		params.Set("user.fields", "location")
		if nextToken != "" {
			params.Set("next_token", nextToken)
		}
		endpoint := a.baseURL + "/2/tweets/search/recent?" + params.Encode()

		var page twitterSearchResponse
		err := a.req.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+a.token)
			return req, nil
		}, &page)
		if err != nil {
			return nil, err
		}

		locations := make(map[string]string, len(page.Includes.Users))
		for _, u := range page.Includes.Users {
			if loc := strings.TrimSpace(u.Location); loc != "" {
				locations[u.ID] = loc
			}
		}
		for _, tweet := range page.Data {
			rec := domain.RawRecord{
				Text:      tweet.Text,
				Source:    SourceTwitter,
				Timestamp: parseTimestamp(tweet.CreatedAt, a.clock),
			}
			if loc, ok := locations[tweet.AuthorID]; ok {
				rec.AuthorLocation = strPtr(loc)
			}
			out = append(out, rec)
			if len(out) >= limit {
				break
			}
		}

		nextToken = page.Meta.NextToken
		if nextToken == "" || len(page.Data) == 0 {
			break
		}
	}
	return out, nil
}
