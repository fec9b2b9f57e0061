package farms

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/growthfarm/market-api/internal/market"
)

const (
	defaultLimit = 100
	maxLimit     = 100
)

type FarmType string

const (
	TypeOrganic      FarmType = "organic"
	TypeConventional FarmType = "conventional"
	TypeHydroponic   FarmType = "hydroponic"
	TypeGreenhouse   FarmType = "greenhouse"
)

// Valid accepts the empty type; it is optional.
func (t FarmType) Valid() bool {
	switch t {
	case "", TypeOrganic, TypeConventional, TypeHydroponic, TypeGreenhouse:
		return true
	}
	return false
}

type Farm struct {
	ID              int64               `json:"id"`
	OwnerID         int64               `json:"owner_id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Address         string              `json:"address"`
	Latitude        decimal.NullDecimal `json:"latitude"`
	Longitude       decimal.NullDecimal `json:"longitude"`
	TotalArea       decimal.NullDecimal `json:"total_area"`
	FarmType        FarmType            `json:"farm_type"`
	EstablishedDate pgtype.Date         `json:"established_date"`
	IsActive        bool                `json:"is_active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type NewFarm struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Address         string              `json:"address"`
	Latitude        decimal.NullDecimal `json:"latitude"`
	Longitude       decimal.NullDecimal `json:"longitude"`
	TotalArea       decimal.NullDecimal `json:"total_area"`
	FarmType        FarmType            `json:"farm_type"`
	EstablishedDate pgtype.Date         `json:"established_date"`
}

// Patch holds the farm fields an owner may change. Nil means "leave as is".
type Patch struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Address         *string          `json:"address"`
	Latitude        *decimal.Decimal `json:"latitude"`
	Longitude       *decimal.Decimal `json:"longitude"`
	TotalArea       *decimal.Decimal `json:"total_area"`
	FarmType        *FarmType        `json:"farm_type"`
	EstablishedDate *pgtype.Date     `json:"established_date"`
}

func (pt Patch) Apply(f Farm) Farm {
	if pt.Name != nil {
		f.Name = *pt.Name
	}
	if pt.Description != nil {
		f.Description = *pt.Description
	}
	if pt.Address != nil {
		f.Address = *pt.Address
	}
	if pt.Latitude != nil {
		f.Latitude = decimal.NewNullDecimal(*pt.Latitude)
	}
	if pt.Longitude != nil {
		f.Longitude = decimal.NewNullDecimal(*pt.Longitude)
	}
	if pt.TotalArea != nil {
		f.TotalArea = decimal.NewNullDecimal(*pt.TotalArea)
	}
	if pt.FarmType != nil {
		f.FarmType = *pt.FarmType
	}
	if pt.EstablishedDate != nil {
		f.EstablishedDate = *pt.EstablishedDate
	}
	return f
}

type assignment struct {
	column string
	value  any
}

// assignments lists the columns the patch sets, in a fixed order.
func (pt Patch) assignments() []assignment {
	var out []assignment
	if pt.Name != nil {
		out = append(out, assignment{"name", *pt.Name})
	}
	if pt.Description != nil {
		out = append(out, assignment{"description", *pt.Description})
	}
	if pt.Address != nil {
		out = append(out, assignment{"address", *pt.Address})
	}
	if pt.Latitude != nil {
		out = append(out, assignment{"latitude", *pt.Latitude})
	}
	if pt.Longitude != nil {
		out = append(out, assignment{"longitude", *pt.Longitude})
	}
	if pt.TotalArea != nil {
		out = append(out, assignment{"total_area", *pt.TotalArea})
	}
	if pt.FarmType != nil {
		out = append(out, assignment{"farm_type", *pt.FarmType})
	}
	if pt.EstablishedDate != nil {
		out = append(out, assignment{"established_date", *pt.EstablishedDate})
	}
	return out
}

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

func validateFarm(f Farm) error {
	if n := utf8.RuneCountInString(f.Name); n < 1 || n > 255 {
		return fmt.Errorf("%w: name must be 1-255 characters", market.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(f.Address) > 500 {
		return fmt.Errorf("%w: address must be at most 500 characters", market.ErrInvalidRequest)
	}
	if f.Latitude.Valid && f.Latitude.Decimal.Abs().GreaterThan(maxLatitude) {
		return fmt.Errorf("%w: latitude must be within -90..90", market.ErrInvalidRequest)
	}
	if f.Longitude.Valid && f.Longitude.Decimal.Abs().GreaterThan(maxLongitude) {
		return fmt.Errorf("%w: longitude must be within -180..180", market.ErrInvalidRequest)
	}
	if f.TotalArea.Valid && f.TotalArea.Decimal.IsNegative() {
		return fmt.Errorf("%w: total_area must not be negative", market.ErrInvalidRequest)
	}
	if !f.FarmType.Valid() {
		return fmt.Errorf("%w: unknown farm type %q", market.ErrInvalidRequest, f.FarmType)
	}
	return nil
}

type Irrigation string

const (
	IrrigationDrip      Irrigation = "drip"
	IrrigationSprinkler Irrigation = "sprinkler"
	IrrigationFlood     Irrigation = "flood"
	IrrigationManual    Irrigation = "manual"
)

func (i Irrigation) Valid() bool {
	switch i {
	case "", IrrigationDrip, IrrigationSprinkler, IrrigationFlood, IrrigationManual:
		return true
	}
	return false
}

type Zone struct {
	ID             int64               `json:"id"`
	FarmID         int64               `json:"farm_id"`
	Name           string              `json:"zone_name"`
	Code           string              `json:"zone_code"`
	AreaSize       decimal.NullDecimal `json:"area_size"`
	SoilType       string              `json:"soil_type"`
	IrrigationType Irrigation          `json:"irrigation_type"`
	IsActive       bool                `json:"is_active"`
	CreatedAt      time.Time           `json:"created_at"`
}

type NewZone struct {
	Name           string              `json:"zone_name"`
	Code           string              `json:"zone_code"`
	AreaSize       decimal.NullDecimal `json:"area_size"`
	SoilType       string              `json:"soil_type"`
	IrrigationType Irrigation          `json:"irrigation_type"`
}

func validateZone(z NewZone) error {
	if n := utf8.RuneCountInString(z.Name); n < 1 || n > 100 {
		return fmt.Errorf("%w: zone_name must be 1-100 characters", market.ErrInvalidRequest)
	}
	if n := utf8.RuneCountInString(z.Code); n < 1 || n > 20 {
		return fmt.Errorf("%w: zone_code must be 1-20 characters", market.ErrInvalidRequest)
	}
	if z.AreaSize.Valid && z.AreaSize.Decimal.IsNegative() {
		return fmt.Errorf("%w: area_size must not be negative", market.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(z.SoilType) > 100 {
		return fmt.Errorf("%w: soil_type must be at most 100 characters", market.ErrInvalidRequest)
	}
	if !z.IrrigationType.Valid() {
		return fmt.Errorf("%w: unknown irrigation type %q", market.ErrInvalidRequest, z.IrrigationType)
	}
	return nil
}

type PlantingStatus string

const (
	PlantingPlanned   PlantingStatus = "planned"
	PlantingPlanted   PlantingStatus = "planted"
	PlantingGrowing   PlantingStatus = "growing"
	PlantingHarvested PlantingStatus = "harvested"
	PlantingFailed    PlantingStatus = "failed"
)

func (s PlantingStatus) Valid() bool {
	switch s {
	case PlantingPlanned, PlantingPlanted, PlantingGrowing, PlantingHarvested, PlantingFailed:
		return true
	}
	return false
}

// Active plantings are the ones counted on the dashboard.
func (s PlantingStatus) Active() bool { return s == PlantingPlanted || s == PlantingGrowing }

type Planting struct {
	ID                  int64          `json:"id"`
	ZoneID              int64          `json:"farm_zone_id"`
	CropName            string         `json:"crop_name"`
	PlantingDate        pgtype.Date    `json:"planting_date"`
	ExpectedHarvestDate pgtype.Date    `json:"expected_harvest_date"`
	QuantityPlanted     *int           `json:"quantity_planted"`
	Status              PlantingStatus `json:"status"`
	Notes               string         `json:"notes"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type NewPlanting struct {
	CropName            string         `json:"crop_name"`
	PlantingDate        pgtype.Date    `json:"planting_date"`
	ExpectedHarvestDate pgtype.Date    `json:"expected_harvest_date"`
	QuantityPlanted     *int           `json:"quantity_planted"`
	Status              PlantingStatus `json:"status"`
	Notes               string         `json:"notes"`
}

func validatePlanting(p NewPlanting) error {
	if n := utf8.RuneCountInString(p.CropName); n < 1 || n > 255 {
		return fmt.Errorf("%w: crop_name must be 1-255 characters", market.ErrInvalidRequest)
	}
	if !p.PlantingDate.Valid {
		return fmt.Errorf("%w: planting_date is required", market.ErrInvalidRequest)
	}
	if p.ExpectedHarvestDate.Valid && p.ExpectedHarvestDate.Time.Before(p.PlantingDate.Time) {
		return fmt.Errorf("%w: expected_harvest_date is before planting_date", market.ErrInvalidRequest)
	}
	if p.QuantityPlanted != nil && *p.QuantityPlanted < 0 {
		return fmt.Errorf("%w: quantity_planted must not be negative", market.ErrInvalidRequest)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown planting status %q", market.ErrInvalidRequest, p.Status)
	}
	return nil
}

type Stats struct {
	ZonesCount      int `json:"zones_count"`
	ActivePlantings int `json:"active_plantings"`
}

type Dashboard struct {
	Farm           Farm   `json:"farm_info"`
	Stats          Stats  `json:"stats"`
	RecentActivity string `json:"recent_activity"`
}
