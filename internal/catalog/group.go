package catalog

import "articleregistry/backend/internal/domain"

const (
	noCodeKey = "NoCode"
	noNameKey = "Unnamed"
)

// GroupKey is "{articleName}_{articleCode}" with sentinels for missing parts.
func GroupKey(rec domain.Record) string {
	name := rec.ArticleName
	if name == "" {
		name = noNameKey
	}
	code := rec.ArticleCode
	if code == "" {
		code = noCodeKey
	}
	return name + "_" + code
}

// Group buckets records by GroupKey. Groups come out in first-seen order and
// keep the input order inside each group; the first record is the main one.
func Group(records []domain.Record) []domain.ArticleGroup {
	order := make([]string, 0)
	buckets := make(map[string][]domain.Record)
	for _, rec := range records {
		key := GroupKey(rec)
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], rec)
	}

	groups := make([]domain.ArticleGroup, 0, len(order))
	for _, key := range order {
		variants := buckets[key]
		groups = append(groups, domain.ArticleGroup{
			Key:          key,
			MainArticle:  variants[0],
			Variants:     variants,
			VariantCount: len(variants),
		})
	}
	return groups
}

// Expanded is the transient set of expanded group keys. It is never persisted.
type Expanded map[string]struct{}

func (e Expanded) Toggle(key string) bool {
	if _, ok := e[key]; ok {
		delete(e, key)
		return false
	}
	e[key] = struct{}{}
	return true
}

func (e Expanded) IsExpanded(key string) bool {
	_, ok := e[key]
	return ok
}
