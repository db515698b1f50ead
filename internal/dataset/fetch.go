package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/property"
)

// PostgresSource is the source URI that reads a dataset from the store.
const PostgresSource = "postgres"

// Database is the part of the store the loader reads from.
type Database interface {
	LoadProperties(ctx context.Context) ([]property.Property, error)
	LoadAmenities(ctx context.Context, c amenity.Category) ([]amenity.Amenity, error)
}

// Fetcher resolves a source URI to the raw JSON array it names.
type Fetcher struct {
	http *retryablehttp.Client
	// MaxBytes guards against runaway downloads.
	MaxBytes int64
}

func NewFetcher(timeout time.Duration) *Fetcher {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.RetryMax = 3
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil
	return &Fetcher{http: rc, MaxBytes: 256 << 20}
}

func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return f.fetchHTTP(ctx, uri)
	case uri == "":
		return nil, errors.New("empty source")
	default:
		return f.readFile(strings.TrimPrefix(uri, "file://"))
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d", uri, resp.StatusCode)
	}
	return readAllLimit(resp.Body, f.MaxBytes)
}

func (f *Fetcher) readFile(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return readAllLimit(fh, f.MaxBytes)
}

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}

// DecodeProperties parses a JSON array of property records.
func DecodeProperties(raw []byte) ([]property.Property, error) {
	var props []property.Property
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("unmarshal properties: %w", err)
	}
	return props, nil
}

// DecodeAmenities parses a JSON array of amenity records.
func DecodeAmenities(raw []byte) ([]amenity.Amenity, error) {
	var list []amenity.Amenity
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("unmarshal amenities: %w", err)
	}
	return list, nil
}
