package groups

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"sitegrid/pkg/sitegrid/errs"
	"sitegrid/pkg/sitegrid/models"
	"sitegrid/pkg/sitegrid/query"
	"sitegrid/pkg/sitegrid/validation"
)

// Service maintains the group forest: CRUD, the cycle-free parent
// relation, and listing. Reparenting validates and writes inside one
// transaction so the ancestor walk sees the snapshot being committed.
type Service struct {
	db  *gorm.DB
	log *slog.Logger
}

// NewService creates a groups service.
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger}
}

// Update is a partial patch: nil fields are left unchanged. Reparenting
// goes through SetParent/ClearParent only, never through Update.
type Update struct {
	Name *string
	Type *models.GroupType
}

var groupFields = query.Fields{
	"name": {Column: "name", Kind: query.String},
	"type": {Column: "type", Kind: query.Enum},
}

// Create creates a group. A supplied parent must already exist; a fresh
// node cannot close a cycle, so no ancestor walk is needed here.
func (s *Service) Create(name string, gtype *models.GroupType, parentID *uint) (*models.Group, error) {
	if !validation.NameValid(name) {
		return nil, errs.Validation(errs.ReasonBlankName)
	}
	if gtype != nil && !gtype.Valid() {
		return nil, errs.Validation("unknown group type")
	}
	group := models.Group{Name: name, Type: gtype, ParentID: parentID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if parentID != nil {
			if _, err := fetchGroup(tx, *parentID); err != nil {
				return err
			}
		}
		return errs.Store(tx.Create(&group).Error)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("group created", "id", group.ID)
	return &group, nil
}

// Get returns the group by id.
func (s *Service) Get(id uint) (*models.Group, error) {
	return fetchGroup(s.db, id)
}

// Update applies the supplied fields only.
func (s *Service) Update(id uint, patch Update) (*models.Group, error) {
	var updated models.Group
	err := s.db.Transaction(func(tx *gorm.DB) error {
		group, err := fetchGroup(tx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			if !validation.NameValid(*patch.Name) {
				return errs.Validation(errs.ReasonBlankName)
			}
			group.Name = *patch.Name
		}
		if patch.Type != nil {
			if !patch.Type.Valid() {
				return errs.Validation("unknown group type")
			}
			group.Type = patch.Type
		}
		if err := tx.Save(group).Error; err != nil {
			return errs.Store(err)
		}
		updated = *group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the group and its site associations. Children are not
// cascaded: they keep their ParentID and the surrounding service decides
// the orphan policy.
func (s *Service) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		group, err := fetchGroup(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(group).Association("Sites").Clear(); err != nil {
			return errs.Store(err)
		}
		return errs.Store(tx.Delete(group).Error)
	})
}

// ListChildren returns all groups whose parent is the given group.
func (s *Service) ListChildren(id uint) ([]models.Group, error) {
	if _, err := fetchGroup(s.db, id); err != nil {
		return nil, err
	}
	var children []models.Group
	if err := s.db.Where("parent_id = ?", id).Find(&children).Error; err != nil {
		return nil, errs.Store(err)
	}
	return children, nil
}

// SetParent makes parentID the parent of childID. Self-parenting is
// rejected outright; otherwise the ancestor chain of the new parent is
// walked to the root and the move is rejected if the child appears in
// it. The walk terminates because cycles are rejected at every write.
func (s *Service) SetParent(childID, parentID uint) error {
	if childID == parentID {
		return errs.Validation(errs.ReasonSelfParent)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		child, err := fetchGroup(tx, childID)
		if err != nil {
			return err
		}
		parent, err := fetchGroup(tx, parentID)
		if err != nil {
			return err
		}

		cur := parent
		seen := map[uint]bool{parent.ID: true}
		for {
			if cur.ID == childID {
				return errs.Validation(errs.ReasonCycle)
			}
			if cur.ParentID == nil {
				break
			}
			next := *cur.ParentID
			if seen[next] {
				// corrupt chain in the store; stop rather than spin
				break
			}
			seen[next] = true
			var ancestor models.Group
			if err := tx.First(&ancestor, next).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					break // dangling parent reference ends the chain
				}
				return errs.Store(err)
			}
			cur = &ancestor
		}

		return errs.Store(tx.Model(child).Update("parent_id", parent.ID).Error)
	})
}

// ClearParent detaches childID from expectedParentID. The caller names
// the relationship being removed so a different one cannot be detached
// by accident.
func (s *Service) ClearParent(childID, expectedParentID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		child, err := fetchGroup(tx, childID)
		if err != nil {
			return err
		}
		if child.ParentID == nil || *child.ParentID != expectedParentID {
			return errs.Validation(errs.ReasonParentMismatch)
		}
		return errs.Store(tx.Model(child).Update("parent_id", nil).Error)
	})
}

// List runs the query pipeline over groups.
func (s *Service) List(p query.Params) (*query.Page[models.Group], error) {
	return query.Run[models.Group](s.db, groupFields, p)
}

// ListSites returns the sites associated with the group.
func (s *Service) ListSites(id uint) ([]models.Site, error) {
	group, err := fetchGroup(s.db, id)
	if err != nil {
		return nil, err
	}
	var sites []models.Site
	if err := s.db.Model(group).Association("Sites").Find(&sites); err != nil {
		return nil, errs.Store(err)
	}
	return sites, nil
}

func fetchGroup(tx *gorm.DB, id uint) (*models.Group, error) {
	var group models.Group
	if err := tx.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, errs.Store(err)
	}
	return &group, nil
}
