package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytdata "google.golang.org/api/youtube/v3"
	ytanalytics "google.golang.org/api/youtubeanalytics/v2"

	"creatorfin/internal/core"
)

const (
	metricRevenue   = "estimatedRevenue"
	metricAdRevenue = "estimatedAdRevenue"
	dimensionDay    = "day"
)

// DailyRevenue is one row of the per-day analytics report.
type DailyRevenue struct {
	Date      core.Date
	Revenue   decimal.Decimal
	AdRevenue decimal.Decimal
}

// API is the slice of the YouTube platform this package talks to. Calls are
// made with the caller's access token.
type API interface {
	// ChannelIdentity resolves the authenticated user's own channel.
	// Returns nil when the account has no channel.
	ChannelIdentity(ctx context.Context, accessToken string) (*core.AccountIdentity, error)
	// DailyRevenue reports revenue per day over the inclusive range.
	DailyRevenue(ctx context.Context, accessToken string, start, end core.Date) ([]DailyRevenue, error)
}

// GoogleClient implements API with the Google client libraries.
type GoogleClient struct {
	httpClient *http.Client
	// endpoint overrides the API base URL, used against local fakes.
	endpoint string
}

var _ API = (*GoogleClient)(nil)

func NewGoogleClient(httpClient *http.Client, endpoint string) *GoogleClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleClient{httpClient: httpClient, endpoint: endpoint}
}

func (c *GoogleClient) options(ctx context.Context, accessToken string) []option.ClientOption {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return opts
}

func (c *GoogleClient) ChannelIdentity(ctx context.Context, accessToken string) (*core.AccountIdentity, error) {
	svc, err := ytdata.NewService(ctx, c.options(ctx, accessToken)...)
	if err != nil {
		return nil, fmt.Errorf("youtube data service: %w", err)
	}

	resp, err := svc.Channels.List([]string{"id", "snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, classify("list channels", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == "" {
		return nil, nil
	}

	ch := resp.Items[0]
	identity := &core.AccountIdentity{PlatformAccountID: ch.Id}
	if ch.Snippet != nil {
		identity.DisplayName = ch.Snippet.Title
	}
	return identity, nil
}

func (c *GoogleClient) DailyRevenue(ctx context.Context, accessToken string, start, end core.Date) ([]DailyRevenue, error) {
	svc, err := ytanalytics.NewService(ctx, c.options(ctx, accessToken)...)
	if err != nil {
		return nil, fmt.Errorf("youtube analytics service: %w", err)
	}

	resp, err := svc.Reports.Query().
		Ids("channel==MINE").
		StartDate(start.String()).
		EndDate(end.String()).
		Metrics(metricRevenue + "," + metricAdRevenue).
		Dimensions(dimensionDay).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("query analytics", err)
	}
	return parseReport(resp)
}

// parseReport maps rows by column header so column order is not assumed.
func parseReport(resp *ytanalytics.QueryResponse) ([]DailyRevenue, error) {
	dayCol, revCol, adCol := 0, 1, 2
	for i, h := range resp.ColumnHeaders {
		if h == nil {
			continue
		}
		switch h.Name {
		case dimensionDay:
			dayCol = i
		case metricRevenue:
			revCol = i
		case metricAdRevenue:
			adCol = i
		}
	}

	out := make([]DailyRevenue, 0, len(resp.Rows))
	for n, row := range resp.Rows {
		if len(row) <= dayCol || len(row) <= revCol {
			return nil, fmt.Errorf("%w: analytics row %d has %d columns", core.ErrUpstreamFailure, n, len(row))
		}
		day, ok := row[dayCol].(string)
		if !ok {
			return nil, fmt.Errorf("%w: analytics row %d: day is %T", core.ErrUpstreamFailure, n, row[dayCol])
		}
		date, err := core.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("%w: analytics row %d: %v", core.ErrUpstreamFailure, n, err)
		}
		rev, err := toDecimal(row[revCol])
		if err != nil {
			return nil, fmt.Errorf("%w: analytics row %d: %v", core.ErrUpstreamFailure, n, err)
		}
		r := DailyRevenue{Date: date, Revenue: rev}
		if adCol < len(row) {
			r.AdRevenue, _ = toDecimal(row[adCol])
		}
		out = append(out, r)
	}
	return out, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected metric value %T", v)
	}
}

// classify maps Google API failures onto the core error taxonomy.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %w", core.ErrUpstreamAuthExpired, op, err)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %w", core.ErrUpstreamAuthExpired, op, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrUpstreamFailure, op, err)
}
