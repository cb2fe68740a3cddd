package cars

import (
	"sort"
	"strings"
)

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"
	SortByRating    CatalogSort = "rating_desc"
	SortByNewest    CatalogSort = "newest"

	defaultSearchLimit = 24
	maxSearchLimit     = 100
)

// SearchParams describe catalog filters and paging options.
// Price bounds apply to the daily rate.
type SearchParams struct {
	OwnerID       string
	City          string
	Country       string
	Category      string
	Transmission  string
	FuelType      string
	MinSeats      int
	PriceMinCents int64
	PriceMaxCents int64
	OnlyActive    bool
	Sort          CatalogSort
	Limit         int
	Offset        int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	n := p
	n.OwnerID = strings.TrimSpace(n.OwnerID)
	n.City = strings.ToLower(strings.TrimSpace(n.City))
	n.Country = strings.ToLower(strings.TrimSpace(n.Country))
	n.Category = strings.ToLower(strings.TrimSpace(n.Category))
	n.Transmission = strings.ToLower(strings.TrimSpace(n.Transmission))
	n.FuelType = strings.ToLower(strings.TrimSpace(n.FuelType))
	if n.MinSeats < 0 {
		n.MinSeats = 0
	}
	if n.PriceMinCents < 0 {
		n.PriceMinCents = 0
	}
	if n.PriceMaxCents > 0 && n.PriceMaxCents < n.PriceMinCents {
		n.PriceMaxCents = 0
	}
	if n.Limit <= 0 {
		n.Limit = defaultSearchLimit
	}
	if n.Limit > maxSearchLimit {
		n.Limit = maxSearchLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	switch n.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByRating, SortByNewest:
	default:
		n.Sort = SortByPriceAsc
	}
	return n
}

// Matches applies the filters of normalized params to a single car.
func (p SearchParams) Matches(c *Car) bool {
	switch {
	case p.OwnerID != "" && c.OwnerID != p.OwnerID:
		return false
	case p.OnlyActive && (c.Status != StatusActive || !c.Available):
		return false
	case p.City != "" && strings.ToLower(c.Location.City) != p.City:
		return false
	case p.Country != "" && strings.ToLower(c.Location.Country) != p.Country:
		return false
	case p.Category != "" && c.Category != p.Category:
		return false
	case p.Transmission != "" && c.Transmission != p.Transmission:
		return false
	case p.FuelType != "" && c.FuelType != p.FuelType:
		return false
	case p.MinSeats > 0 && c.Seats < p.MinSeats:
		return false
	case p.PriceMinCents > 0 && c.Rates.Daily < p.PriceMinCents:
		return false
	case p.PriceMaxCents > 0 && c.Rates.Daily > p.PriceMaxCents:
		return false
	}
	return true
}

// SortCars orders cars in place; ties fall back to the id for a stable catalog.
func SortCars(items []*Car, by CatalogSort) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch by {
		case SortByPriceDesc:
			if a.Rates.Daily != b.Rates.Daily {
				return a.Rates.Daily > b.Rates.Daily
			}
		case SortByRating:
			if a.Rating.Average != b.Rating.Average {
				return a.Rating.Average > b.Rating.Average
			}
		case SortByNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if a.Rates.Daily != b.Rates.Daily {
				return a.Rates.Daily < b.Rates.Daily
			}
		}
		return a.ID < b.ID
	})
}

// SearchResult wraps search hits with the total before paging.
type SearchResult struct {
	Items []*Car
	Total int
}
