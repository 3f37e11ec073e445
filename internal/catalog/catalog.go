// Package catalog fetches the item definitions that Seed loads into storage.
//
// The remote document is untrusted: it is decoded strictly into model.Item
// and then validated as a whole. A document with even one bad item is
// rejected, so a half-good catalog never reaches the database.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sakif/idle-clicker/internal/model"
)

// DefaultURL is the public catalog the game was designed around.
const DefaultURL = "https://csharp.nouvet.fr/front4/items.json"

// maxBodyBytes caps how much of the remote response we are willing to read.
const maxBodyBytes = 1 << 20

var (
	ErrEmpty     = errors.New("catalog: source returned no items")
	ErrMalformed = errors.New("catalog: malformed document")
	ErrInvalid   = errors.New("catalog: invalid item")
)

// Source produces a candidate catalog.
type Source interface {
	Fetch(ctx context.Context) ([]model.Item, error)
}

// HTTPSource reads a JSON array of items with a GET request.
type HTTPSource struct {
	client *http.Client
	url    string
}

// NewHTTPSource builds a source with its own client. timeout bounds the whole
// request including reading the body; zero falls back to 10 seconds.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// Fetch downloads, decodes and validates the catalog.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: %s returned status %d", s.url, resp.StatusCode)
	}

	items, err := Decode(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

// Decode parses a JSON array of items. Unknown fields are ignored; a body
// that is not exactly one array of objects is ErrMalformed.
func Decode(r io.Reader) ([]model.Item, error) {
	dec := json.NewDecoder(r)
	var items []model.Item
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after item array", ErrMalformed)
	}
	return items, nil
}

// Validate enforces the item invariants across the whole document.
func Validate(items []model.Item) error {
	if len(items) == 0 {
		return ErrEmpty
	}

	seen := make(map[int64]struct{}, len(items))
	for i, it := range items {
		switch {
		case it.ID <= 0:
			return fmt.Errorf("%w: item #%d has non-positive id %d", ErrInvalid, i, it.ID)
		case it.Name == "":
			return fmt.Errorf("%w: item %d has an empty name", ErrInvalid, it.ID)
		case it.Price < 0:
			return fmt.Errorf("%w: item %d has negative price", ErrInvalid, it.ID)
		case it.ClickValue < 0:
			return fmt.Errorf("%w: item %d has negative clickValue", ErrInvalid, it.ID)
		case it.MaxQuantity < 0:
			return fmt.Errorf("%w: item %d has negative maxQuantity", ErrInvalid, it.ID)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalid, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// StaticSource serves a fixed list, validated like a remote one.
type StaticSource []model.Item

func (s StaticSource) Fetch(_ context.Context) ([]model.Item, error) {
	items := make([]model.Item, len(s))
	copy(items, s)
	if err := Validate(items); err != nil {
		return nil, err
	}
	return items, nil
}
