package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"sentiment_research/internal/config"
	"sentiment_research/internal/domain"
)

// SourceReddit is the source name stamped on Reddit records.
const SourceReddit = "Reddit"

// RedditAdapter searches r/all with an application-only OAuth token.
type RedditAdapter struct {
	clientID     string
	clientSecret string
	userAgent    string
	tokenURL     string
	baseURL      string
	clock        clockwork.Clock
	req          *requester

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

type redditTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		After    *string `json:"after"`
		Children []struct {
			Data struct {
				Title           string  `json:"title"`
				Selftext        string  `json:"selftext"`
				SelftextHTML    *string `json:"selftext_html"`
				CreatedUTC      float64 `json:"created_utc"`
				AuthorFlairText *string `json:"author_flair_text"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func NewRedditAdapter(cfg config.RedditConfig, opts Options) *RedditAdapter {
	opts = opts.withDefaults()
	return &RedditAdapter{
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		userAgent:    strings.TrimSpace(cfg.UserAgent),
		tokenURL:     cfg.TokenURL,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clock:        opts.Clock,
		req:          newRequester(SourceReddit, cfg.Cooldown, opts),
	}
}

func (a *RedditAdapter) Name() string { return SourceReddit }

func (a *RedditAdapter) Configured() bool {
	return a.clientID != "" && a.clientSecret != "" && a.userAgent != ""
}

// Fetch searches r/all sorted by new and follows the listing's after cursor.
func (a *RedditAdapter) Fetch(ctx context.Context, query string, limit int) ([]domain.RawRecord, error) {
	if !a.Configured() || limit <= 0 {
		return nil, nil
	}
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	after := ""
	for len(out) < limit {
		params := url.Values{}
		params.Set("q", query)
		params.Set("sort", "new")
		params.Set("limit", strconv.Itoa(min(100, limit-len(out))))
		params.Set("raw_json", "1")
		if after != "" {
			params.Set("after", after)
		}
		endpoint := a.baseURL + "/r/all/search?" + params.Encode()

		var listing redditListing
		err := a.req.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("User-Agent", a.userAgent)
			return req, nil
		}, &listing)
		if err != nil {
			return nil, err
		}

		for _, child := range listing.Data.Children {
			post := child.Data
			rec := domain.RawRecord{
				Text:      redditText(post.Selftext, post.SelftextHTML, post.Title),
				Source:    SourceReddit,
				Timestamp: unixTimestamp(post.CreatedUTC, a.clock),
			}
			if post.AuthorFlairText != nil && strings.TrimSpace(*post.AuthorFlairText) != "" {
				rec.AuthorLocation = strPtr(strings.TrimSpace(*post.AuthorFlairText))
			}
			out = append(out, rec)
			if len(out) >= limit {
				break
			}
		}

		if listing.Data.After == nil || *listing.Data.After == "" || len(listing.Data.Children) == 0 {
			break
		}
		after = *listing.Data.After
	}
	return out, nil
}

func redditText(selftext string, selftextHTML *string, title string) string {
	if s := strings.TrimSpace(selftext); s != "" {
		return s
	}
	if selftextHTML != nil {
		if s := plainText(*selftextHTML); s != "" {
			return s
		}
	}
	return title
}

// token returns a cached client-credentials token, refreshing it a minute
// before expiry.
func (a *RedditAdapter) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accessToken != "" && a.clock.Now().Before(a.expiresAt) {
		return a.accessToken, nil
	}

	var tok redditTokenResponse
	err := a.req.doJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		form := url.Values{"grant_type": {"client_credentials"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(a.clientID, a.clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", a.userAgent)
		return req, nil
	}, &tok)
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", &domain.AdapterFetchError{Adapter: SourceReddit, Err: fmt.Errorf("token response without access_token")}
	}

	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl > time.Minute {
		ttl -= time.Minute
	}
	a.accessToken = tok.AccessToken
	a.expiresAt = a.clock.Now().Add(ttl)
	return a.accessToken, nil
}
