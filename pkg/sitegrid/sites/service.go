package sites

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"sitegrid/pkg/sitegrid/errs"
	"sitegrid/pkg/sitegrid/models"
	"sitegrid/pkg/sitegrid/query"
	"sitegrid/pkg/sitegrid/validation"
)

// Service implements the site operations: variant-aware creation, read,
// partial update, delete, listing, and group association. Every mutation
// runs its validation and writes inside one transaction so a concurrent
// write cannot slip between check and commit.
type Service struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewService creates a sites service.
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger}
}

// BaseInput carries the fields shared by both country variants.
type BaseInput struct {
	Name             string
	InstallationDate *models.Date
	MinPowerMegawatt *float64
	MaxPowerMegawatt *float64
}

// Update is a partial patch: nil fields are left unchanged. Country is
// accepted only so an attempted change can be rejected explicitly.
type Update struct {
	Name                    *string
	Country                 *models.SiteCountry
	InstallationDate        *models.Date
	MinPowerMegawatt        *float64
	MaxPowerMegawatt        *float64
	UsefulEnergyAt1Megawatt *float64
	Efficiency              *float64
}

var siteFields = query.Fields{
	"name":                        {Column: "name", Kind: query.String},
	"country":                     {Column: "country", Kind: query.Enum},
	"installation_date":           {Column: "installation_date", Kind: query.Date},
	"min_power_megawatt":          {Column: "min_power_megawatt", Kind: query.Number},
	"max_power_megawatt":          {Column: "max_power_megawatt", Kind: query.Number},
	"useful_energy_at_1_megawatt": {Column: "useful_energy_at_1_megawatt", Kind: query.Number},
	"efficiency":                  {Column: "efficiency", Kind: query.Number},
}

func validateBase(in BaseInput) error {
	if !validation.NameValid(in.Name) {
		return errs.Validation(errs.ReasonBlankName)
	}
	if !validation.PowerValuesNonNegative(in.MinPowerMegawatt, in.MaxPowerMegawatt) {
		return errs.Validation(errs.ReasonPowerNegative)
	}
	if !validation.PowerBoundsOrdered(in.MinPowerMegawatt, in.MaxPowerMegawatt) {
		return errs.Validation(errs.ReasonPowerBounds)
	}
	return nil
}

// CreateFrench creates a FRANCE-tagged site. At most one French site may
// carry any given installation date.
func (s *Service) CreateFrench(in BaseInput, usefulEnergy *float64) (*models.Site, error) {
	if err := validateBase(in); err != nil {
		return nil, err
	}
	site := models.NewFrenchSite(in.Name, in.InstallationDate, in.MinPowerMegawatt, in.MaxPowerMegawatt, usefulEnergy)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if in.InstallationDate != nil {
			free, err := validation.FrenchDateAvailable(tx, *in.InstallationDate, 0)
			if err != nil {
				return errs.Store(err)
			}
			if !free {
				return errs.Validation(errs.ReasonDuplicateFrenchDate)
			}
		}
		return errs.Store(tx.Create(&site).Error)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("site created", "id", site.ID, "country", site.Country)
	return &site, nil
}

// CreateItalian creates an ITALY-tagged site. Italian installation dates
// must fall on a weekend.
func (s *Service) CreateItalian(in BaseInput, efficiency *float64) (*models.Site, error) {
	if err := validateBase(in); err != nil {
		return nil, err
	}
	if in.InstallationDate != nil && !validation.ItalianDateAllowed(*in.InstallationDate) {
		return nil, errs.Validation(errs.ReasonItalianWeekendOnly)
	}
	site := models.NewItalianSite(in.Name, in.InstallationDate, in.MinPowerMegawatt, in.MaxPowerMegawatt, efficiency)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return errs.Store(tx.Create(&site).Error)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("site created", "id", site.ID, "country", site.Country)
	return &site, nil
}

// Get returns the site with both variant columns present; the field of
// the other country's variant is null.
func (s *Service) Get(id uint) (*models.Site, error) {
	return fetchSite(s.db, id)
}

// Update applies the supplied fields only. The country discriminant is
// immutable; a changed installation date re-runs the country's date rule
// inside the same transaction that persists the patch.
func (s *Service) Update(id uint, patch Update) (*models.Site, error) {
	var updated models.Site
	err := s.db.Transaction(func(tx *gorm.DB) error {
		site, err := fetchSite(tx, id)
		if err != nil {
			return err
		}
		if patch.Country != nil && *patch.Country != site.Country {
			return errs.Validation(errs.ReasonCountryImmutable)
		}
		if patch.UsefulEnergyAt1Megawatt != nil && site.Country != models.CountryFrance {
			return errs.Validation(errs.ReasonVariantMismatch)
		}
		if patch.Efficiency != nil && site.Country != models.CountryItaly {
			return errs.Validation(errs.ReasonVariantMismatch)
		}

		if patch.Name != nil {
			if !validation.NameValid(*patch.Name) {
				return errs.Validation(errs.ReasonBlankName)
			}
			site.Name = *patch.Name
		}
		if patch.MinPowerMegawatt != nil {
			site.MinPowerMegawatt = patch.MinPowerMegawatt
		}
		if patch.MaxPowerMegawatt != nil {
			site.MaxPowerMegawatt = patch.MaxPowerMegawatt
		}
		if !validation.PowerValuesNonNegative(site.MinPowerMegawatt, site.MaxPowerMegawatt) {
			return errs.Validation(errs.ReasonPowerNegative)
		}
		if !validation.PowerBoundsOrdered(site.MinPowerMegawatt, site.MaxPowerMegawatt) {
			return errs.Validation(errs.ReasonPowerBounds)
		}
		if patch.UsefulEnergyAt1Megawatt != nil {
			site.UsefulEnergyAt1Megawatt = patch.UsefulEnergyAt1Megawatt
		}
		if patch.Efficiency != nil {
			site.Efficiency = patch.Efficiency
		}

		if patch.InstallationDate != nil {
			switch site.Country {
			case models.CountryFrance:
				free, err := validation.FrenchDateAvailable(tx, *patch.InstallationDate, site.ID)
				if err != nil {
					return errs.Store(err)
				}
				if !free {
					return errs.Validation(errs.ReasonDuplicateFrenchDate)
				}
			case models.CountryItaly:
				if !validation.ItalianDateAllowed(*patch.InstallationDate) {
					return errs.Validation(errs.ReasonItalianWeekendOnly)
				}
			}
			site.InstallationDate = patch.InstallationDate
		}

		if err := tx.Save(site).Error; err != nil {
			return errs.Store(err)
		}
		updated = *site
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the site and its group associations in one transaction.
func (s *Service) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		site, err := fetchSite(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(site).Association("Groups").Clear(); err != nil {
			return errs.Store(err)
		}
		return errs.Store(tx.Delete(site).Error)
	})
}

// List runs the query pipeline over sites.
func (s *Service) List(p query.Params) (*query.Page[models.Site], error) {
	return query.Run[models.Site](s.db, siteFields, p)
}

// AddToGroup associates the site with the group. The group's current
// type gates admission: GROUP3 groups reject sites. Re-adding an
// existing association is a no-op.
func (s *Service) AddToGroup(siteID, groupID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			return notFoundOrStore(err)
		}
		if !validation.GroupAcceptsSites(group) {
			return errs.Validation(errs.ReasonGroupClosed)
		}
		site, err := fetchSite(tx, siteID)
		if err != nil {
			return err
		}
		return errs.Store(tx.Model(site).Association("Groups").Append(&group))
	})
}

// RemoveFromGroup drops the association; removing one that does not
// exist is a no-op.
func (s *Service) RemoveFromGroup(siteID, groupID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			return notFoundOrStore(err)
		}
		site, err := fetchSite(tx, siteID)
		if err != nil {
			return err
		}
		return errs.Store(tx.Model(site).Association("Groups").Delete(&group))
	})
}

// ListGroups returns the groups the site belongs to.
func (s *Service) ListGroups(siteID uint) ([]models.Group, error) {
	site, err := fetchSite(s.db, siteID)
	if err != nil {
		return nil, err
	}
	var groups []models.Group
	if err := s.db.Model(site).Association("Groups").Find(&groups); err != nil {
		return nil, errs.Store(err)
	}
	return groups, nil
}

func fetchSite(tx *gorm.DB, id uint) (*models.Site, error) {
	var site models.Site
	if err := tx.First(&site, id).Error; err != nil {
		return nil, notFoundOrStore(err)
	}
	return &site, nil
}

func notFoundOrStore(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.ErrNotFound
	}
	return errs.Store(err)
}
