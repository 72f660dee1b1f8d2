// Package sampledata holds the bundled commodity and market tables and a
// deterministic sample price curve used when the backend is unreachable.
package sampledata

import (
	"hash/fnv"
	"math"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/crop-price-monitor/internal/daterange"
	"github.com/trogers1052/crop-price-monitor/internal/models"
)

// FallbackMessage is shown to users whenever sample data replaces live data
const FallbackMessage = "Live prices are unavailable; showing sample data."

var commodities = []models.Commodity{
	{ID: "wheat", Name: "Wheat", NameUR: "گندم", Unit: "40kg"},
	{ID: "rice", Name: "Rice", NameUR: "چاول", Unit: "40kg"},
	{ID: "cotton", Name: "Cotton", NameUR: "کپاس", Unit: "40kg"},
	{ID: "sugarcane", Name: "Sugarcane", NameUR: "گنا", Unit: "40kg"},
	{ID: "maize", Name: "Maize", NameUR: "مکئی", Unit: "40kg"},
	{ID: "onion", Name: "Onion", NameUR: "پیاز", Unit: "40kg"},
	{ID: "potato", Name: "Potato", NameUR: "آلو", Unit: "40kg"},
	{ID: "tomato", Name: "Tomato", NameUR: "ٹماٹر", Unit: "40kg"},
}

var locations = []models.Location{
	{ID: "lahore", Name: "Lahore", NameUR: "لاہور", Province: "Punjab"},
	{ID: "karachi", Name: "Karachi", NameUR: "کراچی", Province: "Sindh"},
	{ID: "islamabad", Name: "Islamabad", NameUR: "اسلام آباد", Province: "ICT"},
	{ID: "multan", Name: "Multan", NameUR: "ملتان", Province: "Punjab"},
	{ID: "faisalabad", Name: "Faisalabad", NameUR: "فیصل آباد", Province: "Punjab"},
	{ID: "peshawar", Name: "Peshawar", NameUR: "پشاور", Province: "Khyber Pakhtunkhwa"},
	{ID: "quetta", Name: "Quetta", NameUR: "کوئٹہ", Province: "Balochistan"},
	{ID: "hyderabad", Name: "Hyderabad", NameUR: "حیدرآباد", Province: "Sindh"},
}

// PKR per 40kg
var basePrices = map[string]float64{
	"wheat":     3900,
	"rice":      7500,
	"cotton":    8500,
	"sugarcane": 450,
	"maize":     2600,
	"onion":     3200,
	"potato":    2400,
	"tomato":    4000,
}

const defaultBasePrice = 3000

var epoch = civil.Date{Year: 2000, Month: 1, Day: 1}

// Commodities returns a copy of the bundled commodity table
func Commodities() []models.Commodity {
	return append([]models.Commodity(nil), commodities...)
}

// Locations returns a copy of the bundled market table
func Locations() []models.Location {
	return append([]models.Location(nil), locations...)
}

// PriceOn returns the sample price of commodity at location on d. The curve
// combines a yearly season and a monthly swing, offset per market, so any
// window over the same day yields the same value.
func PriceOn(commodity, location string, d civil.Date) decimal.Decimal {
	base, ok := basePrices[key(commodity)]
	if !ok {
		base = defaultBasePrice
	}

	h := fnv.New32a()
	h.Write([]byte(key(commodity) + "|" + key(location)))
	seed := h.Sum32()
	phase := float64(seed%360) * math.Pi / 180
	marketSkew := 0.95 + float64(seed%100)/1000

	day := float64(d.DaysSince(epoch))
	seasonal := 0.08 * math.Sin(2*math.Pi*day/365+phase)
	monthly := 0.02 * math.Sin(2*math.Pi*day/30+phase/2)

	return decimal.NewFromFloat(base * marketSkew * (1 + seasonal + monthly)).Round(0)
}

// Series returns one sample point per day of r, inclusive. Ranges longer
// than daterange.MaxHistoryDays yield nil.
func Series(commodity, location string, r daterange.Range) []models.PricePoint {
	if r.Start.After(r.End) || r.End.DaysSince(r.Start) > daterange.MaxHistoryDays {
		return nil
	}
	n := r.End.DaysSince(r.Start) + 1
	points := make([]models.PricePoint, 0, n)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		points = append(points, models.PricePoint{Date: d, Price: PriceOn(commodity, location, d)})
	}
	return points
}

// Forecast returns sample points for the days following today
func Forecast(commodity, location string, today civil.Date, days int) *models.Forecast {
	if days < 1 {
		days = 1
	}
	if days > daterange.MaxForecastDays {
		days = daterange.MaxForecastDays
	}
	r := daterange.Range{Start: today.AddDays(1), End: today.AddDays(days)}
	return &models.Forecast{
		Forecast:   Series(commodity, location, r),
		UsingModel: false,
		Message:    FallbackMessage,
	}
}

// Realtime returns today's sample table for location, or every market when
// location is empty.
func Realtime(location string, today civil.Date) []models.RealtimePrice {
	var markets []models.Location
	for _, l := range locations {
		if location == "" || key(l.ID) == key(location) || key(l.Name) == key(location) {
			markets = append(markets, l)
		}
	}
	if len(markets) == 0 {
		markets = []models.Location{{ID: key(location), Name: location}}
	}

	prices := make([]models.RealtimePrice, 0, len(markets)*len(commodities))
	for _, l := range markets {
		for _, c := range commodities {
			now := PriceOn(c.ID, l.ID, today)
			prev := PriceOn(c.ID, l.ID, today.AddDays(-1))
			prices = append(prices, models.RealtimePrice{
				Commodity: c.Name,
				Location:  l.Name,
				Price:     now,
				Change:    now.Sub(prev),
				Unit:      c.Unit,
				Date:      today,
			})
		}
	}
	return prices
}

func key(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
