package domain

import "time"

type Property struct {
	ID                int64
	Address           string
	PropertyType      string // home|townhome|apartment
	PricePerMonth     float64
	SquareFootage     float64
	Description       *string
	Contacts          *string
	CatFriendly       bool
	AirConditioning   bool
	OnPremisesParking bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type PropertyNote struct {
	ID         int64
	PropertyID int64
	Content    string
	CreatedAt  time.Time
}

// Settings is a single-row table: the fixed reference address commute
// estimates are computed against.
type Settings struct {
	OriginAddress string
}

// PropertyView is the read model: the property plus its notes and the
// travel estimate per slot. A slot missing from TravelTimes means the
// estimate has never been computed (or the last recompute failed).
type PropertyView struct {
	Property
	Notes       []PropertyNote
	TravelTimes map[string]TravelEstimate
}

type PropertiesQuery struct {
	Type        *string
	MaxPrice    *float64
	CatFriendly *bool
	Sort        string // price|sqft|created
	Limit       int
}
