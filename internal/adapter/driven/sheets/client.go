// Package sheets implements the SheetClient port against the Google Sheets
// API v4.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/arjunmk/dhanarjan/internal/domain/model"
	"github.com/arjunmk/dhanarjan/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SheetClient = (*Client)(nil)

// Config carries everything needed to read one spreadsheet range.
// Exactly one of APIKey or CredentialsFile must be set.
type Config struct {
	SpreadsheetID   string
	ReadRange       string // Sheet name or A1 range, e.g. "Investment".
	APIKey          string
	CredentialsFile string // Path to a service-account JSON key.
}

// Client implements the driven.SheetClient port using the Google Sheets API.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
}

// NewClient creates a Sheets API client. With a service-account credentials
// file the transport stack is:
//  1. httpcache (ETag-based conditional request caching)
//  2. oauth2 (service-account token source)
//  3. Sheets API v4
//
// With an API key the google-api client attaches the key itself and the
// cache layer is skipped.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet ID is required")
	}

	var opts []option.ClientOption

	switch {
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}

		creds, err := google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials file: %w", err)
		}

		cacheClient := httpcache.NewMemoryCacheTransport().Client()
		authCtx := context.WithValue(ctx, oauth2.HTTPClient, cacheClient)
		opts = append(opts, option.WithHTTPClient(oauth2.NewClient(authCtx, creds.TokenSource)))

	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))

	default:
		return nil, errors.New("sheets: either an API key or a credentials file is required")
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     cfg.ReadRange,
	}, nil
}

// NewClientWithEndpoint creates a Client talking to a custom base URL without
// authentication. This constructor is intended for testing, allowing injection
// of an httptest server.
func NewClientWithEndpoint(ctx context.Context, baseURL, spreadsheetID, readRange string) (*Client, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithoutAuthentication(),
		option.WithEndpoint(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
	}, nil
}

// FetchSnapshot reads the configured range and parses it into the investment,
// total-shares, and loan blocks.
func (c *Client) FetchSnapshot(ctx context.Context) (*model.SheetSnapshot, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching range %q: %w", c.readRange, err)
	}

	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("no data found in range %q", c.readRange)
	}

	snapshot, err := parseSnapshot(resp.Values, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	slog.Debug("sheet snapshot fetched",
		"range", c.readRange,
		"rows", len(resp.Values),
		"investments", len(snapshot.Investments),
		"shareholdings", len(snapshot.Shareholdings),
		"loans", len(snapshot.Loans),
	)

	return snapshot, nil
}
