// Package properties drives the property-cards widget: fetching listing
// pages, widening the page on "show more", and relaying per-card actions.
package properties

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mayachat/internal/protocol"
)

// DefaultPageSize matches the card grid the widget renders per page.
const DefaultPageSize = 6

// Catalog is the remote listings surface the browser consumes.
// *chatclient.Client satisfies it.
type Catalog interface {
	ListProperties(ctx context.Context, propertyType string, limit int) ([]protocol.Listing, error)
	FilterProperties(ctx context.Context, req protocol.PropertyFilterRequest) ([]protocol.Listing, error)
	PropertyAction(ctx context.Context, req protocol.PropertyActionRequest) (*protocol.ChatResponse, error)
}

// Browser holds the listing state behind one property_cards descriptor.
type Browser struct {
	mu      sync.Mutex
	catalog Catalog
	log     *zap.Logger

	sessionID    string
	propertyType string
	filtered     bool
	filter       protocol.PropertyFilterRequest
	pageSize     int
	limit        int
	listings     []protocol.Listing
	exhausted    bool
}

// NewBrowser builds a browser from a property_cards descriptor payload.
// When the descriptor carries preferences the filter endpoint is used and
// paging is disabled, matching the card widget's contract.
func NewBrowser(catalog Catalog, logger *zap.Logger, sessionID string, data protocol.PropertyCardsData) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Browser{
		catalog:      catalog,
		log:          logger,
		sessionID:    sessionID,
		propertyType: data.PropertyType,
		filtered:     data.Filtered,
		pageSize:     DefaultPageSize,
		limit:        DefaultPageSize,
	}
	if data.Filtered && data.Preferences != "" {
		if err := json.Unmarshal([]byte(data.Preferences), &b.filter); err != nil {
			return nil, fmt.Errorf("bad preferences payload: %w", err)
		}
		b.filter.PropertyType = data.PropertyType
	}
	return b, nil
}

// SetPageSize overrides the initial page width. Zero or negative keeps the
// current size.
func (b *Browser) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	b.pageSize = n
	b.limit = n
	b.mu.Unlock()
}

// Listings returns the currently loaded page.
func (b *Browser) Listings() []protocol.Listing {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]protocol.Listing, len(b.listings))
	copy(out, b.listings)
	return out
}

// CanShowMore reports whether a wider page is worth requesting. Filtered
// result sets are complete and never page.
func (b *Browser) CanShowMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.filtered && !b.exhausted && len(b.listings) >= b.limit
}

// Load fetches the first page.
func (b *Browser) Load(ctx context.Context) error {
	b.mu.Lock()
	b.limit = b.pageSize
	b.exhausted = false
	b.mu.Unlock()
	return b.fetch(ctx)
}

// ShowMore doubles the page size and refetches. The widened page replaces
// the current one.
func (b *Browser) ShowMore(ctx context.Context) error {
	b.mu.Lock()
	if b.filtered {
		b.mu.Unlock()
		return nil
	}
	b.limit *= 2
	b.mu.Unlock()
	return b.fetch(ctx)
}

func (b *Browser) fetch(ctx context.Context) error {
	b.mu.Lock()
	propertyType, filtered, filter, limit := b.propertyType, b.filtered, b.filter, b.limit
	b.mu.Unlock()

	var (
		page []protocol.Listing
		err  error
	)
	if filtered {
		page, err = b.catalog.FilterProperties(ctx, filter)
	} else {
		page, err = b.catalog.ListProperties(ctx, propertyType, limit)
	}
	if err != nil {
		b.log.Warn("listing fetch failed", zap.String("type", propertyType), zap.Error(err))
		return err
	}

	b.mu.Lock()
	b.listings = page
	if len(page) < limit {
		b.exhausted = true
	}
	b.mu.Unlock()
	return nil
}

// Brochure requests a brochure for the given listing.
func (b *Browser) Brochure(ctx context.Context, listing protocol.Listing) (*protocol.ChatResponse, error) {
	return b.action(ctx, "brochure", listing)
}

// Quote requests a price quote for the given listing.
func (b *Browser) Quote(ctx context.Context, listing protocol.Listing) (*protocol.ChatResponse, error) {
	return b.action(ctx, "quote", listing)
}

func (b *Browser) action(ctx context.Context, action string, listing protocol.Listing) (*protocol.ChatResponse, error) {
	return b.catalog.PropertyAction(ctx, protocol.PropertyActionRequest{
		SessionID:  b.sessionID,
		Action:     action,
		PropertyID: listing.ID,
	})
}

// CardLine formats one listing for a single transcript-width card row.
func CardLine(l protocol.Listing) string {
	parts := []string{l.Name}
	if l.Location != "" {
		parts = append(parts, l.Location)
	}
	if l.Price != "" {
		parts = append(parts, l.Price)
	}
	return strings.Join(parts, " · ")
}
