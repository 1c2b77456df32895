package domain

import "strings"

// Category is the closed enumeration classifying a record's domain.
type Category string

const (
	CategoryWildlife       Category = "WILDLIFE"
	CategoryWeather        Category = "WEATHER"
	CategoryGovernment     Category = "GOVERNMENT"
	CategoryEconomic       Category = "ECONOMIC"
	CategoryDemographics   Category = "DEMOGRAPHICS"
	CategoryRegulations    Category = "REGULATIONS"
	CategoryGeospatial     Category = "GEOSPATIAL"
	CategoryMarine         Category = "MARINE"
	CategoryEnergy         Category = "ENERGY"
	CategoryHealth         Category = "HEALTH"
	CategoryRecreation     Category = "RECREATION"
	CategoryResearch       Category = "RESEARCH"
	CategoryImagery        Category = "IMAGERY"
	CategoryTransportation Category = "TRANSPORTATION"
)

var allCategories = []Category{
	CategoryWildlife,
	CategoryWeather,
	CategoryGovernment,
	CategoryEconomic,
	CategoryDemographics,
	CategoryRegulations,
	CategoryGeospatial,
	CategoryMarine,
	CategoryEnergy,
	CategoryHealth,
	CategoryRecreation,
	CategoryResearch,
	CategoryImagery,
	CategoryTransportation,
}

func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) Valid() bool {
	for _, k := range allCategories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseCategory normalizes user input ("weather", " Weather ") to the enum.
// Returns "" when the input names no known category.
func ParseCategory(s string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return ""
}
