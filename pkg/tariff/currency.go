package tariff

import (
	"strings"

	"github.com/solarslot/solarslot/pkg/types"
)

// DefaultCountry is the country whose currency the base rates are expressed
// in. Unknown countries fall back to it.
const DefaultCountry = "India"

// Rates are approximate INR conversion factors.
var defaultCurrencies = map[string]types.Currency{
	"India":          {Code: "INR", Symbol: "₹", Rate: 1.0},
	"United States":  {Code: "USD", Symbol: "$", Rate: 0.012},
	"United Kingdom": {Code: "GBP", Symbol: "£", Rate: 0.0094},
	"European Union": {Code: "EUR", Symbol: "€", Rate: 0.011},
	"Canada":         {Code: "CAD", Symbol: "C$", Rate: 0.016},
	"Australia":      {Code: "AUD", Symbol: "A$", Rate: 0.018},
	"Japan":          {Code: "JPY", Symbol: "¥", Rate: 1.76},
	"China":          {Code: "CNY", Symbol: "¥", Rate: 0.086},
	"Russia":         {Code: "RUB", Symbol: "₽", Rate: 1.08},
	"Brazil":         {Code: "BRL", Symbol: "R$", Rate: 0.059},
	"South Africa":   {Code: "ZAR", Symbol: "R", Rate: 0.22},
	"UAE":            {Code: "AED", Symbol: "AED", Rate: 0.044},
	"Singapore":      {Code: "SGD", Symbol: "S$", Rate: 0.016},
	"Switzerland":    {Code: "CHF", Symbol: "Fr", Rate: 0.010},
	"New Zealand":    {Code: "NZD", Symbol: "NZ$", Rate: 0.019},
	"Mexico":         {Code: "MXN", Symbol: "$", Rate: 0.20},
	"South Korea":    {Code: "KRW", Symbol: "₩", Rate: 15.8},
	"Sweden":         {Code: "SEK", Symbol: "kr", Rate: 0.12},
	"Norway":         {Code: "NOK", Symbol: "kr", Rate: 0.12},
	"Saudi Arabia":   {Code: "SAR", Symbol: "SR", Rate: 0.045},
	"Turkey":         {Code: "TRY", Symbol: "₺", Rate: 0.36},
	"Thailand":       {Code: "THB", Symbol: "฿", Rate: 0.42},
	"Malaysia":       {Code: "MYR", Symbol: "RM", Rate: 0.056},
	"Indonesia":      {Code: "IDR", Symbol: "Rp", Rate: 186.0},
	"Vietnam":        {Code: "VND", Symbol: "₫", Rate: 293.0},
	"Pakistan":       {Code: "PKR", Symbol: "Rs", Rate: 3.3},
	"Sri Lanka":      {Code: "LKR", Symbol: "Rs", Rate: 3.6},
	"Bangladesh":     {Code: "BDT", Symbol: "৳", Rate: 1.3},
	"Nepal":          {Code: "NPR", Symbol: "Rs", Rate: 1.6},
}

var countryAliases = map[string]string{
	"USA":                  "United States",
	"US":                   "United States",
	"UK":                   "United Kingdom",
	"United Arab Emirates": "UAE",
}

// normalizeCountry resolves aliases. Country names are otherwise matched
// exactly as given.
func normalizeCountry(country string) string {
	country = strings.TrimSpace(country)
	if alias, ok := countryAliases[country]; ok {
		return alias
	}
	return country
}
