package models

import "github.com/shopspring/decimal"

// BuildingType is the controlled vocabulary every free-text property type maps into.
type BuildingType string

const (
	BuildingDetached     BuildingType = "detached"
	BuildingApartment    BuildingType = "apartment"
	BuildingTerraced     BuildingType = "terraced"
	BuildingSemiDetached BuildingType = "semi_detached"
	BuildingUnknown      BuildingType = "unknown"
)

// FinnishName returns the Finnish term stored alongside analyses.
func (b BuildingType) FinnishName() string {
	switch b {
	case BuildingDetached:
		return "omakotitalo"
	case BuildingApartment:
		return "kerrostalo"
	case BuildingTerraced:
		return "rivitalo"
	case BuildingSemiDetached:
		return "paritalo"
	default:
		return "tuntematon"
	}
}

// PropertyRecord is the minimal canonical fact set derived from a listing.
type PropertyRecord struct {
	Address          string
	BuildingType     BuildingType
	Price            decimal.NullDecimal
	ConstructionYear *int
}
