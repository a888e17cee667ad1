package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"articleregistry/backend/internal/domain"
)

const (
	topArticleLimit = 5
	recentSaleLimit = 10
)

// Statistics aggregates the whole ledger. Revenue is quantity×price summed
// per currency with no conversion between buckets.
func (l *Ledger) Statistics(ctx context.Context) domain.SalesStatistics {
	b := l.read(ctx)

	revenue := map[domain.Currency]decimal.Decimal{
		domain.CurrencyEUR: decimal.Zero,
		domain.CurrencyUSD: decimal.Zero,
	}
	totalQuantity := decimal.Zero
	orders := 0
	volumes := make([]domain.ArticleVolume, 0, b.Len())
	all := make([]domain.Sale, 0)

	for _, articleID := range b.Keys() {
		sales := b.List(articleID)
		volume := domain.ArticleVolume{ArticleID: articleID}
		articleQuantity := decimal.Zero
		for _, sale := range sales {
			quantity := amount(sale.Quantity)
			price := amount(sale.Price)

			orders++
			totalQuantity = totalQuantity.Add(quantity)
			articleQuantity = articleQuantity.Add(quantity)
			if bucket, ok := revenue[sale.Currency]; ok {
				revenue[sale.Currency] = bucket.Add(quantity.Mul(price))
			}
			if volume.ArticleCode == "" {
				volume.ArticleCode = sale.ArticleCode
			}
			all = append(all, sale)
		}
		volume.Quantity = articleQuantity.InexactFloat64()
		volumes = append(volumes, volume)
	}

	sort.SliceStable(volumes, func(i, j int) bool {
		return volumes[i].Quantity > volumes[j].Quantity
	})
	if len(volumes) > topArticleLimit {
		volumes = volumes[:topArticleLimit]
	}

	sortNewestFirst(all)
	if len(all) > recentSaleLimit {
		all = all[:recentSaleLimit]
	}

	stats := domain.SalesStatistics{
		TotalOrders:   orders,
		TotalQuantity: totalQuantity.InexactFloat64(),
		Revenue:       make(map[domain.Currency]float64, len(revenue)),
		TopArticles:   volumes,
		RecentSales:   all,
	}
	for currency, total := range revenue {
		stats.Revenue[currency] = total.InexactFloat64()
	}
	return stats
}

func sumQuantity(sales []domain.Sale) decimal.Decimal {
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(amount(sale.Quantity))
	}
	return total
}

func amount(s string) decimal.Decimal {
	return decimal.NewFromFloat(domain.ParseAmount(s))
}
