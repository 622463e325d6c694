// Package validation holds the business invariants checked before any
// mutation is committed. Predicates that need store state take the
// transaction handle so the check sees the snapshot being written.
package validation

import (
	"strings"

	"gorm.io/gorm"

	"sitegrid/pkg/sitegrid/models"
)

// FrenchDateAvailable reports whether no other FRANCE-tagged site already
// has the given installation date. Pass excludeSiteID when re-validating
// an existing site so it does not collide with itself; zero means no
// exclusion.
func FrenchDateAvailable(tx *gorm.DB, date models.Date, excludeSiteID uint) (bool, error) {
	q := tx.Model(&models.Site{}).
		Where("country = ? AND installation_date = ?", models.CountryFrance, date)
	if excludeSiteID != 0 {
		q = q.Where("id != ?", excludeSiteID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// ItalianDateAllowed reports whether the installation date of an
// ITALY-tagged site falls on a weekend.
func ItalianDateAllowed(date models.Date) bool {
	return date.IsWeekend()
}

// GroupAcceptsSites reports whether sites may be associated with the
// group. GROUP3 groups are closed to sites; an untyped group is open.
func GroupAcceptsSites(group models.Group) bool {
	return group.Type == nil || *group.Type != models.GroupType3
}

// PowerBoundsOrdered reports min <= max when both bounds are present.
// A missing bound is always valid.
func PowerBoundsOrdered(min, max *float64) bool {
	if min == nil || max == nil {
		return true
	}
	return *min <= *max
}

// PowerValuesNonNegative reports whether every present value is >= 0.
func PowerValuesNonNegative(values ...*float64) bool {
	for _, v := range values {
		if v != nil && *v < 0 {
			return false
		}
	}
	return true
}

// NameValid reports whether the name carries any non-whitespace content.
func NameValid(name string) bool {
	return strings.TrimSpace(name) != ""
}
