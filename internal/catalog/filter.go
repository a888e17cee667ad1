package catalog

import (
	"math"
	"sort"
	"strings"

	"articleregistry/backend/internal/domain"
)

// SoldLookup reports whether an article id has at least one recorded sale.
type SoldLookup func(articleID string) bool

// Apply runs the view, filter, search and sort stages in that order. It does
// not modify records.
func Apply(records []domain.Record, q domain.ArticleQuery, sold SoldLookup) []domain.Record {
	result := restrictView(records, q)
	if !q.Filters.IsEmpty() {
		result = applyFilters(result, q.Filters, sold)
	}
	result = search(result, q.Search)
	if q.View != domain.ViewRecent {
		sortRecords(result, q.Sort)
	}
	return result
}

func restrictView(records []domain.Record, q domain.ArticleQuery) []domain.Record {
	switch q.View {
	case domain.ViewFavorites:
		favorites := toSet(q.Favorites)
		out := make([]domain.Record, 0, len(q.Favorites))
		for _, rec := range records {
			if _, ok := favorites[rec.ID]; ok {
				out = append(out, rec)
			}
		}
		return out
	case domain.ViewRecent:
		rank := make(map[string]int, len(q.Recent))
		for i, id := range q.Recent {
			if _, seen := rank[id]; !seen {
				rank[id] = i
			}
		}
		out := make([]domain.Record, 0, len(q.Recent))
		for _, rec := range records {
			if _, ok := rank[rec.ID]; ok {
				out = append(out, rec)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return rank[out[i].ID] < rank[out[j].ID]
		})
		return out
	default:
		return append([]domain.Record(nil), records...)
	}
}

func applyFilters(records []domain.Record, f *domain.FilterSet, sold SoldLookup) []domain.Record {
	seasons := toSet(f.Seasons)
	sections := toSet(f.Sections)
	suppliers := toSet(f.Suppliers)

	checkPrice := f.MinPrice != nil || f.MaxPrice != nil
	lo, hi := 0.0, math.Inf(1)
	if f.MinPrice != nil {
		lo = *f.MinPrice
	}
	if f.MaxPrice != nil {
		hi = *f.MaxPrice
	}

	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if len(seasons) > 0 && !contains(seasons, rec.Season) {
			continue
		}
		if len(sections) > 0 && !contains(sections, rec.Section) {
			continue
		}
		if len(suppliers) > 0 && !contains(suppliers, rec.Supplier) {
			continue
		}
		if f.SoldItemsOnly && (sold == nil || !sold(rec.ID)) {
			continue
		}
		if checkPrice {
			price := rec.BasePrice()
			if price < lo || price > hi {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

var searchFields = []string{
	domain.FieldArticleCode,
	domain.FieldArticleName,
	domain.FieldColorCode,
	domain.FieldColorName,
	domain.FieldTreatmentName,
	domain.FieldSection,
	domain.FieldSeason,
	domain.FieldSupplier,
}

func search(records []domain.Record, query string) []domain.Record {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return records
	}
	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		for _, field := range searchFields {
			if strings.Contains(strings.ToLower(rec.Field(field)), needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

func sortRecords(records []domain.Record, key domain.SortKey) {
	var less func(a, b domain.Record) bool
	switch key {
	case domain.SortName:
		less = func(a, b domain.Record) bool {
			return strings.ToLower(a.ArticleName) < strings.ToLower(b.ArticleName)
		}
	case domain.SortCode:
		less = func(a, b domain.Record) bool {
			return strings.ToLower(a.ArticleCode) < strings.ToLower(b.ArticleCode)
		}
	case domain.SortPrice:
		less = func(a, b domain.Record) bool {
			return a.BasePrice() < b.BasePrice()
		}
	default:
		// dateAdded: records carry no reliable creation order beyond input order
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		return less(records[i], records[j])
	})
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
