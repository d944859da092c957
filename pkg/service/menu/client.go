package menu

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/utils/logging"
	"github.com/secmon-lab/babbell/pkg/utils/safe"
)

const (
	// DefaultURL is the SNU Co-op daily menu page
	DefaultURL = "https://snuco.snu.ac.kr/foodmenu/"

	defaultTimeout = 10 * time.Second
	maxBodySize    = 5 << 20
	userAgent      = "babbell-menu/1.0"
)

// Client scrapes today's menu from the cafeteria web page
type Client struct {
	url        string
	httpClient *http.Client
	clock      func() time.Time
	location   *time.Location
}

var _ interfaces.MenuProvider = &Client{}

type Option func(*Client)

func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock replaces time.Now, for tests
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithLocation sets the time zone used to decide the date and the meal of
// the day. The default is the process local zone.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		c.location = loc
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		url:        DefaultURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		clock:      time.Now,
		location:   time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads and parses the menu page. Restaurants missing from the page
// are left out; a page without the menu table is an error.
func (c *Client) Fetch(ctx context.Context) (*model.Menu, error) {
	now := c.clock().In(c.location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create menu request", goerr.V("url", c.url))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch menu page", goerr.V("url", c.url))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("unexpected status from menu page",
			goerr.V("url", c.url),
			goerr.V("status", resp.StatusCode))
	}

	restaurants, err := parsePage(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse menu page", goerr.V("url", c.url))
	}

	for i := range restaurants {
		restaurants[i].Selected = restaurants[i].SelectMeal(now)
	}

	logging.From(ctx).Info("Menu fetched",
		"date", now.Format(time.DateOnly),
		"restaurants", len(restaurants))

	return &model.Menu{
		Date:        now.Format(time.DateOnly),
		Restaurants: restaurants,
		FetchedAt:   now,
	}, nil
}
