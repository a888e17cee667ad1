package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"articleregistry/backend/internal/domain"
)

var ErrUnknownMarket = errors.New("unknown market")

// YardsPerMeter converts a per-meter price into a per-yard price.
const YardsPerMeter = 1.09361

const (
	DefaultTruckCost = 0.20
	DefaultAirCost   = 1.50
)

type Market struct {
	ID         string              `json:"id"`
	Label      string              `json:"label"`
	Region     domain.MarketRegion `json:"region"`
	Commission float64             `json:"commission"`
	NeedsFX    bool                `json:"needsFx"`
}

var markets = []Market{
	{ID: "italy", Label: "Italy", Region: domain.RegionEurope, Commission: 5},
	{ID: "spain", Label: "Spain", Region: domain.RegionEurope, Commission: 4},
	{ID: "france", Label: "France", Region: domain.RegionEurope, Commission: 6},
	{ID: "usa", Label: "USA", Region: domain.RegionUSA, Commission: 10, NeedsFX: true},
	{ID: "other", Label: "Other", Region: domain.RegionOther, Commission: 5},
}

var defaultMargins = map[domain.MarketRegion]float64{
	domain.RegionEurope: 0.80,
	domain.RegionUSA:    1.20,
	domain.RegionOther:  1.00,
}

func Markets() []Market {
	return append([]Market(nil), markets...)
}

func LookupMarket(id string) (Market, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, m := range markets {
		if m.ID == id {
			return m, nil
		}
	}
	return Market{}, fmt.Errorf("%w: %q", ErrUnknownMarket, id)
}

// DefaultForm is the calculator state before any user input.
func DefaultForm() domain.PricingForm {
	first := markets[0]
	return domain.PricingForm{
		Market:        first.ID,
		Commission:    formatNumber(first.Commission),
		EuropeMargin:  formatNumber(defaultMargins[domain.RegionEurope]),
		USAMargin:     formatNumber(defaultMargins[domain.RegionUSA]),
		OtherMargin:   formatNumber(defaultMargins[domain.RegionOther]),
		TransportType: domain.TransportTruck,
		TruckCost:     formatNumber(DefaultTruckCost),
		AirCost:       formatNumber(DefaultAirCost),
	}
}

// SelectMarket switches the form to market id and resets the commission to
// that market's default. Every other field is left as entered.
func SelectMarket(form domain.PricingForm, id string) (domain.PricingForm, error) {
	m, err := LookupMarket(id)
	if err != nil {
		return form, err
	}
	form.Market = m.ID
	form.Commission = formatNumber(m.Commission)
	return form, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
