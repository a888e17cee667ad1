package pricing

import (
	"time"

	"articleregistry/backend/internal/domain"
	"articleregistry/backend/internal/xid"
)

// Compute applies margin, commission, transport and sampling to basePrice,
// in that order. The usa region converts the EUR/mt result to USD/yrd.
// Unparseable numeric fields read as 0.
func Compute(basePrice float64, form domain.PricingForm) (float64, error) {
	m, err := LookupMarket(form.Market)
	if err != nil {
		return 0, err
	}

	price := basePrice + marginFor(m.Region, form)
	price *= 1 + domain.ParseAmount(form.Commission)/100
	if form.UseTransport {
		price += transportCost(form)
	}
	if form.UseSampling {
		price *= 1 + domain.ParseAmount(form.SamplingRate)/100
	}
	if m.Region == domain.RegionUSA {
		price = price * domain.ParseAmount(form.FXRate) / YardsPerMeter
	}
	return price, nil
}

// Quote prices an article and labels the result with its currency and unit.
func Quote(articleID string, basePrice float64, form domain.PricingForm) (domain.PricingQuote, error) {
	final, err := Compute(basePrice, form)
	if err != nil {
		return domain.PricingQuote{}, err
	}
	m, _ := LookupMarket(form.Market)
	currency, unit := domain.CurrencyEUR, domain.UnitMeter
	if m.Region == domain.RegionUSA {
		currency, unit = domain.CurrencyUSD, domain.UnitYard
	}
	return domain.PricingQuote{
		ArticleID:  articleID,
		BasePrice:  basePrice,
		FinalPrice: final,
		Currency:   string(currency),
		Unit:       string(unit),
	}, nil
}

// Snapshot captures the inputs and result of one calculation. Optional
// fields are only set when the matching option was active.
func Snapshot(articleID string, basePrice float64, form domain.PricingForm, at time.Time) (domain.PricingCalculation, error) {
	final, err := Compute(basePrice, form)
	if err != nil {
		return domain.PricingCalculation{}, err
	}
	m, _ := LookupMarket(form.Market)

	calc := domain.PricingCalculation{
		ID:           xid.New("calc"),
		Timestamp:    at,
		ArticleID:    articleID,
		Market:       m.ID,
		MarketLabel:  m.Label,
		ProfitMargin: marginFor(m.Region, form),
		UseTransport: form.UseTransport,
		UseSampling:  form.UseSampling,
		FinalPrice:   final,
		BasePrice:    basePrice,
		Commission:   domain.ParseAmount(form.Commission),
	}
	if form.UseTransport {
		cost := transportCost(form)
		calc.TransportType = transportType(form)
		calc.TransportCost = &cost
	}
	if form.UseSampling {
		rate := domain.ParseAmount(form.SamplingRate)
		calc.SamplingRate = &rate
	}
	if m.Region == domain.RegionUSA {
		fx := domain.ParseAmount(form.FXRate)
		calc.FXRate = &fx
	}
	return calc, nil
}

// Restore rebuilds the live form from a saved calculation. The margin and
// transport cost go back into the fields their region and type select.
func Restore(calc domain.PricingCalculation) domain.PricingForm {
	form := DefaultForm()
	form.Market = calc.Market
	form.Commission = formatNumber(calc.Commission)

	region := domain.RegionOther
	if m, err := LookupMarket(calc.Market); err == nil {
		region = m.Region
	}
	margin := formatNumber(calc.ProfitMargin)
	switch region {
	case domain.RegionEurope:
		form.EuropeMargin = margin
	case domain.RegionUSA:
		form.USAMargin = margin
	default:
		form.OtherMargin = margin
	}

	form.UseTransport = calc.UseTransport
	if calc.UseTransport {
		form.TransportType = calc.TransportType
		if form.TransportType == "" {
			form.TransportType = domain.TransportTruck
		}
		if calc.TransportCost != nil {
			if form.TransportType == domain.TransportAir {
				form.AirCost = formatNumber(*calc.TransportCost)
			} else {
				form.TruckCost = formatNumber(*calc.TransportCost)
			}
		}
	}

	form.UseSampling = calc.UseSampling
	if calc.SamplingRate != nil {
		form.SamplingRate = formatNumber(*calc.SamplingRate)
	}
	if calc.FXRate != nil {
		form.FXRate = formatNumber(*calc.FXRate)
	}
	return form
}

func marginFor(region domain.MarketRegion, form domain.PricingForm) float64 {
	switch region {
	case domain.RegionEurope:
		return domain.ParseAmount(form.EuropeMargin)
	case domain.RegionUSA:
		return domain.ParseAmount(form.USAMargin)
	default:
		return domain.ParseAmount(form.OtherMargin)
	}
}

func transportType(form domain.PricingForm) domain.TransportType {
	if form.TransportType == domain.TransportAir {
		return domain.TransportAir
	}
	return domain.TransportTruck
}

func transportCost(form domain.PricingForm) float64 {
	if transportType(form) == domain.TransportAir {
		return domain.ParseAmount(form.AirCost)
	}
	return domain.ParseAmount(form.TruckCost)
}
