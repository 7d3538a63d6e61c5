package properties

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mayachat/internal/protocol"
)

type fakeCatalog struct {
	listings   []protocol.Listing
	listCalls  []int
	filterReqs []protocol.PropertyFilterRequest
	actionReqs []protocol.PropertyActionRequest
	err        error
}

func (f *fakeCatalog) ListProperties(ctx context.Context, propertyType string, limit int) ([]protocol.Listing, error) {
	f.listCalls = append(f.listCalls, limit)
	if f.err != nil {
		return nil, f.err
	}
	page := f.listings
	if limit < len(page) {
		page = page[:limit]
	}
	return page, nil
}

func (f *fakeCatalog) FilterProperties(ctx context.Context, req protocol.PropertyFilterRequest) ([]protocol.Listing, error) {
	f.filterReqs = append(f.filterReqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func (f *fakeCatalog) PropertyAction(ctx context.Context, req protocol.PropertyActionRequest) (*protocol.ChatResponse, error) {
	f.actionReqs = append(f.actionReqs, req)
	return &protocol.ChatResponse{Message: "Your brochure is on the way!"}, nil
}

func catalogWith(n int) *fakeCatalog {
	f := &fakeCatalog{}
	for i := 0; i < n; i++ {
		f.listings = append(f.listings, protocol.Listing{
			ID:       fmt.Sprintf("prop-%d", i),
			Name:     fmt.Sprintf("Vivid Heights %d", i),
			Type:     "residential",
			Location: "OMR",
			Price:    "₹85L",
		})
	}
	return f
}

func TestLoadFetchesFirstPage(t *testing.T) {
	cat := catalogWith(10)
	b, err := NewBrowser(cat, nil, "s1", protocol.PropertyCardsData{PropertyType: "residential"})
	require.NoError(t, err)

	require.NoError(t, b.Load(context.Background()))
	assert.Len(t, b.Listings(), DefaultPageSize)
	assert.Equal(t, []int{DefaultPageSize}, cat.listCalls)
	assert.True(t, b.CanShowMore())
}

func TestShowMoreDoublesLimit(t *testing.T) {
	cat := catalogWith(10)
	b, err := NewBrowser(cat, nil, "s1", protocol.PropertyCardsData{PropertyType: "residential"})
	require.NoError(t, err)

	require.NoError(t, b.Load(context.Background()))
	require.NoError(t, b.ShowMore(context.Background()))

	assert.Equal(t, []int{6, 12}, cat.listCalls)
	assert.Len(t, b.Listings(), 10)
	// Short page means the catalog is exhausted.
	assert.False(t, b.CanShowMore())
}

func TestSetPageSizeControlsPageRequests(t *testing.T) {
	cat := catalogWith(10)
	b, err := NewBrowser(cat, nil, "s1", protocol.PropertyCardsData{PropertyType: "residential"})
	require.NoError(t, err)

	b.SetPageSize(3)
	require.NoError(t, b.Load(context.Background()))
	require.NoError(t, b.ShowMore(context.Background()))
	assert.Equal(t, []int{3, 6}, cat.listCalls)

	// Reloading starts over from the configured page size.
	require.NoError(t, b.Load(context.Background()))
	assert.Equal(t, []int{3, 6, 3}, cat.listCalls)

	// Nonsense sizes are ignored.
	b.SetPageSize(0)
	require.NoError(t, b.Load(context.Background()))
	assert.Equal(t, []int{3, 6, 3, 3}, cat.listCalls)
}

func TestFilteredBrowserUsesFilterEndpointAndNeverPages(t *testing.T) {
	cat := catalogWith(2)
	b, err := NewBrowser(cat, nil, "s1", protocol.PropertyCardsData{
		PropertyType: "commercial",
		Filtered:     true,
		Preferences:  `{"budget":"50L-1Cr","location":["OMR","ECR"]}`,
	})
	require.NoError(t, err)

	require.NoError(t, b.Load(context.Background()))
	require.Len(t, cat.filterReqs, 1)
	assert.Equal(t, "commercial", cat.filterReqs[0].PropertyType)
	assert.Equal(t, "50L-1Cr", cat.filterReqs[0].Budget)
	assert.Equal(t, []string{"OMR", "ECR"}, cat.filterReqs[0].Location)
	assert.Empty(t, cat.listCalls)

	assert.False(t, b.CanShowMore())
	require.NoError(t, b.ShowMore(context.Background()))
	assert.Len(t, cat.filterReqs, 1, "show more is a no-op for filtered sets")
}

func TestBadPreferencesPayloadIsAnError(t *testing.T) {
	_, err := NewBrowser(&fakeCatalog{}, nil, "s1", protocol.PropertyCardsData{
		PropertyType: "residential",
		Filtered:     true,
		Preferences:  "{not json",
	})
	assert.Error(t, err)
}

func TestLoadPropagatesFetchError(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("boom")}
	b, err := NewBrowser(cat, nil, "s1", protocol.PropertyCardsData{PropertyType: "residential"})
	require.NoError(t, err)

	assert.Error(t, b.Load(context.Background()))
	assert.Empty(t, b.Listings())
}

func TestBrochureAndQuoteCarrySessionAndListing(t *testing.T) {
	cat := catalogWith(1)
	b, err := NewBrowser(cat, nil, "sess-9", protocol.PropertyCardsData{PropertyType: "residential"})
	require.NoError(t, err)

	_, err = b.Brochure(context.Background(), cat.listings[0])
	require.NoError(t, err)
	_, err = b.Quote(context.Background(), cat.listings[0])
	require.NoError(t, err)

	require.Len(t, cat.actionReqs, 2)
	assert.Equal(t, "brochure", cat.actionReqs[0].Action)
	assert.Equal(t, "quote", cat.actionReqs[1].Action)
	for _, req := range cat.actionReqs {
		assert.Equal(t, "sess-9", req.SessionID)
		assert.Equal(t, "prop-0", req.PropertyID)
	}
}

func TestCardLine(t *testing.T) {
	l := protocol.Listing{Name: "Vivid Heights", Location: "OMR", Price: "₹85L"}
	assert.Equal(t, "Vivid Heights · OMR · ₹85L", CardLine(l))

	assert.Equal(t, "Bare", CardLine(protocol.Listing{Name: "Bare"}))
}
