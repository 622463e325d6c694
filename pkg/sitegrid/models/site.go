package models

import (
	"time"

	"gorm.io/gorm"
)

// SiteCountry selects which country variant a site is. It is fixed at
// creation and never changes.
type SiteCountry string

const (
	CountryFrance SiteCountry = "FRANCE"
	CountryItaly  SiteCountry = "ITALY"
)

// Valid reports whether the value is a known country.
func (c SiteCountry) Valid() bool {
	return c == CountryFrance || c == CountryItaly
}

// Site represents an energy production site. Sites come in two country
// variants sharing a common base: French sites carry
// UsefulEnergyAt1Megawatt, Italian sites carry Efficiency. The variant
// payload is only populated through NewFrenchSite/NewItalianSite, so the
// field belonging to the other country stays null.
type Site struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
	Name             string         `gorm:"not null;index" json:"name"`
	Country          SiteCountry    `gorm:"type:varchar(10);not null;index" json:"country"`
	InstallationDate *Date          `gorm:"type:date;index" json:"installation_date"`
	MaxPowerMegawatt *float64       `json:"max_power_megawatt"`
	MinPowerMegawatt *float64       `json:"min_power_megawatt"`

	// Variant payload: France / Italy respectively.
	UsefulEnergyAt1Megawatt *float64 `json:"useful_energy_at_1_megawatt"`
	Efficiency              *float64 `json:"efficiency"`

	// Relationships
	Groups []Group `gorm:"many2many:site_groups;" json:"groups,omitempty"`
}

// NewFrenchSite builds a FRANCE-tagged site. The Italian payload is left
// null.
func NewFrenchSite(name string, installationDate *Date, minPower, maxPower, usefulEnergy *float64) Site {
	return Site{
		Name:                    name,
		Country:                 CountryFrance,
		InstallationDate:        installationDate,
		MinPowerMegawatt:        minPower,
		MaxPowerMegawatt:        maxPower,
		UsefulEnergyAt1Megawatt: usefulEnergy,
	}
}

// NewItalianSite builds an ITALY-tagged site. The French payload is left
// null.
func NewItalianSite(name string, installationDate *Date, minPower, maxPower, efficiency *float64) Site {
	return Site{
		Name:             name,
		Country:          CountryItaly,
		InstallationDate: installationDate,
		MinPowerMegawatt: minPower,
		MaxPowerMegawatt: maxPower,
		Efficiency:       efficiency,
	}
}
