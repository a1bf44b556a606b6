package registry

import (
	"regexp"
	"strings"

	"github.com/sells-group/esg-extract/internal/model"
)

// unitVocab lists the accepted unit spellings per category.
var unitVocab = map[model.UnitCategory][]string{
	model.UnitEmissions:   {"tons", "tonnes", "tCO2e", "tCO2", "CO2e", "metric tons", "kg", "g"},
	model.UnitEnergy:      {"kWh", "MWh", "GWh", "TJ", "GJ", "BTU"},
	model.UnitWater:       {"m3", "litres", "gallons", "cubic meters", "L", "gal"},
	model.UnitPercentage:  {"%", "percent", "percentage"},
	model.UnitCurrency:    {"USD", "EUR", "GBP", "CAD", "$", "€", "£"},
	model.UnitPeople:      {"employees", "people", "workers", "personnel"},
	model.UnitIncidents:   {"incidents", "breaches", "violations", "cases"},
	model.UnitTime:        {"days", "hours", "minutes", "years"},
	model.UnitTemperature: {"°C", "celsius"},
}

// unitPatterns are the compiled unit matchers used when parsing a value
// window around a strategy match.
var unitPatterns = map[model.UnitCategory]*regexp.Regexp{
	model.UnitEmissions:   regexp.MustCompile(`(?i)\b(tons?|tonnes?|tCO2e?|CO2e?|metric\s+tons?|kg|g)\b`),
	model.UnitEnergy:      regexp.MustCompile(`(?i)\b(kWh|MWh|GWh|TJ|GJ|BTU)\b`),
	model.UnitWater:       regexp.MustCompile(`(?i)\b(m3?|litres?|gallons?|cubic\s+meters?|L|gal)\b`),
	model.UnitPercentage:  regexp.MustCompile(`(%|\bpercent(age)?\b)`),
	model.UnitCurrency:    regexp.MustCompile(`(?i)(\bUSD\b|\bEUR\b|\bGBP\b|\bCAD\b|[$€£])`),
	model.UnitPeople:      regexp.MustCompile(`(?i)\b(employees?|people|workers?|personnel)\b`),
	model.UnitIncidents:   regexp.MustCompile(`(?i)\b(incidents?|breaches|violations?|cases)\b`),
	model.UnitTime:        regexp.MustCompile(`(?i)\b(days?|hours?|minutes?|years?)\b`),
	model.UnitTemperature: regexp.MustCompile(`(?i)(°\s?C|\bcelsius\b)`),
}

// rangeByCategory bounds plausible values per unit category.
var rangeByCategory = map[model.UnitCategory]model.ValueRange{
	model.UnitEmissions:   {Min: 0, Max: 1_000_000},
	model.UnitEnergy:      {Min: 0, Max: 1_000_000},
	model.UnitWater:       {Min: 0, Max: 1_000_000},
	model.UnitPercentage:  {Min: 0, Max: 100},
	model.UnitCurrency:    {Min: 0, Max: 1_000_000_000},
	model.UnitPeople:      {Min: 0, Max: 1_000_000},
	model.UnitIncidents:   {Min: 0, Max: 100_000},
	model.UnitTemperature: {Min: -50, Max: 100},
	model.UnitTime:        {Min: 0, Max: 10_000},
}

// categoryTriggers map definition wording to unit categories. Order matters:
// the first matching category supplies the value range.
var categoryTriggers = []struct {
	cat   model.UnitCategory
	words []string
}{
	{model.UnitEmissions, []string{"emission", "ghg", "co2", "carbon"}},
	{model.UnitEnergy, []string{"energy", "kwh", "mwh", "power"}},
	{model.UnitWater, []string{"water", "wastewater", "consumption"}},
	{model.UnitPercentage, []string{"rate", "percentage", "percent", "%"}},
	{model.UnitCurrency, []string{"cost", "expense", "revenue", "usd", "eur"}},
	{model.UnitPeople, []string{"employee", "worker", "people", "personnel"}},
	{model.UnitIncidents, []string{"incident", "breach", "violation"}},
	{model.UnitTemperature, []string{"temperature", "°c", "celsius"}},
	{model.UnitTime, []string{"day", "hour", "time", "duration"}},
}

// deriveCategories returns the unit categories suggested by a definition's
// name and topic, in trigger order.
func deriveCategories(nameEN, topic string) []model.UnitCategory {
	text := strings.ToLower(nameEN + " " + topic)
	var cats []model.UnitCategory
	for _, t := range categoryTriggers {
		for _, w := range t.words {
			if strings.Contains(text, w) {
				cats = append(cats, t.cat)
				break
			}
		}
	}
	return cats
}

// expectedUnits returns the union of the unit vocabularies for cats.
func expectedUnits(cats []model.UnitCategory) map[string]struct{} {
	units := make(map[string]struct{})
	for _, c := range cats {
		for _, u := range unitVocab[c] {
			units[u] = struct{}{}
		}
	}
	return units
}

// UnitPattern returns the compiled unit matcher for a category, or nil.
func UnitPattern(cat model.UnitCategory) *regexp.Regexp {
	return unitPatterns[cat]
}

// AllCategories returns every known unit category in trigger order.
func AllCategories() []model.UnitCategory {
	cats := make([]model.UnitCategory, 0, len(categoryTriggers))
	for _, t := range categoryTriggers {
		cats = append(cats, t.cat)
	}
	return cats
}
