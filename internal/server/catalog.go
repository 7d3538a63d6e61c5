package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"mayachat/internal/protocol"
)

//go:embed data/properties.json
var catalogFS embed.FS

// catalog is the demo listing inventory, loaded from the embedded fixture.
type catalog struct {
	listings []protocol.Listing
}

func loadCatalog() (*catalog, error) {
	raw, err := catalogFS.ReadFile("data/properties.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var listings []protocol.Listing
	if err := json.Unmarshal(raw, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &catalog{listings: listings}, nil
}

// byType returns up to limit listings of the given type.
func (c *catalog) byType(propertyType string, limit int) []protocol.Listing {
	if limit <= 0 {
		limit = 6
	}
	out := []protocol.Listing{}
	for _, l := range c.listings {
		if l.Type == propertyType {
			out = append(out, l)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// filter narrows by type and location. Budget strings are coarse menu
// buckets, not prices, so they do not constrain the result.
func (c *catalog) filter(req protocol.PropertyFilterRequest) []protocol.Listing {
	out := []protocol.Listing{}
	for _, l := range c.listings {
		if req.PropertyType != "" && l.Type != req.PropertyType {
			continue
		}
		if len(req.Location) > 0 && !matchesLocation(l.Location, req.Location) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func matchesLocation(have string, wanted []string) bool {
	for _, w := range wanted {
		if strings.Contains(have, w) {
			return true
		}
	}
	return false
}

// byID looks up one listing.
func (c *catalog) byID(id string) (protocol.Listing, bool) {
	for _, l := range c.listings {
		if l.ID == id {
			return l, true
		}
	}
	return protocol.Listing{}, false
}
