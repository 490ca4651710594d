package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"catalog_system/internal/access"
	"catalog_system/internal/db"
	"catalog_system/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Filter narrows the product listing. Zero value matches everything.
type Filter struct {
	Search   string
	PriceMin *decimal.Decimal
	PriceMax *decimal.Decimal
}

// ParseFilter builds a Filter from raw query values.
// Blank or unparseable price bounds are dropped without error.
func ParseFilter(search, priceMin, priceMax string) Filter {
	return Filter{
		Search:   strings.TrimSpace(search),
		PriceMin: parsePriceBound(priceMin),
		PriceMax: parsePriceBound(priceMax),
	}
}

func parsePriceBound(raw string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

// IsZero reports whether the filter has no active condition
func (f Filter) IsZero() bool {
	return f.Search == "" && f.PriceMin == nil && f.PriceMax == nil
}

// ForRole returns f when role may filter the catalog and an empty filter otherwise
func (f Filter) ForRole(role domain.Role) Filter {
	if !access.Allowed(role, access.ActionFilterCatalog) {
		return Filter{}
	}
	return f
}

// Scope applies the filter to a products query. Search is a case-insensitive
// substring match on name, description or sku, folding non-ASCII letters too;
// price bounds are inclusive.
func (f Filter) Scope(tx *gorm.DB) *gorm.DB {
	if f.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		tx = tx.Where(
			fmt.Sprintf("(%[1]s(name) LIKE ? ESCAPE '!' OR %[1]s(description) LIKE ? ESCAPE '!' OR %[1]s(sku) LIKE ? ESCAPE '!')", db.LowerFunc(tx)),
			pattern, pattern, pattern,
		)
	}
	if f.PriceMin != nil {
		tx = tx.Where("price >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		tx = tx.Where("price <= ?", *f.PriceMax)
	}
	return tx
}

// CacheKey identifies the result set of the filter in the listing cache
func (f Filter) CacheKey() string {
	if f.IsZero() {
		return CachePrefix + "all"
	}
	v := url.Values{}
	if f.Search != "" {
		v.Set("search", strings.ToLower(f.Search))
	}
	if f.PriceMin != nil {
		v.Set("price_min", f.PriceMin.String())
	}
	if f.PriceMax != nil {
		v.Set("price_max", f.PriceMax.String())
	}
	return CachePrefix + v.Encode()
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
