package groups

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sitegrid/pkg/sitegrid/errs"
	"sitegrid/pkg/sitegrid/models"
	"sitegrid/pkg/sitegrid/query"
)

// Handler handles group-related requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new groups handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name     string            `json:"name" binding:"required"`
	Type     *models.GroupType `json:"type" binding:"omitempty,oneof=GROUP1 GROUP2 GROUP3"`
	ParentID *uint             `json:"parent_id"`
}

// UpdateGroupRequest represents a partial group update; omitted fields
// are left unchanged
type UpdateGroupRequest struct {
	Name *string           `json:"name"`
	Type *models.GroupType `json:"type" binding:"omitempty,oneof=GROUP1 GROUP2 GROUP3"`
}

// SetParentRequest names the new parent of a group
type SetParentRequest struct {
	ParentID uint `json:"parent_id" binding:"required"`
}

// ClearParentRequest names the relationship being removed
type ClearParentRequest struct {
	ParentID uint `json:"parent_id" binding:"required"`
}

// Create creates a new group
func (h *Handler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	group, err := h.svc.Create(req.Name, req.Type, req.ParentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, group)
}

// List returns groups with filtering, sorting and pagination
func (h *Handler) List(c *gin.Context) {
	params, err := query.ParseParams(c, groupFields)
	if err != nil {
		respondError(c, err)
		return
	}
	page, err := h.svc.List(params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get returns a specific group
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	group, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Update applies a partial update to a group
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	group, err := h.svc.Update(id, Update{Name: req.Name, Type: req.Type})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// Delete removes a group. Children are not cascaded.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// ListChildren returns the direct children of a group
func (h *Handler) ListChildren(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	children, err := h.svc.ListChildren(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, children)
}

// SetParent reparents a group
func (h *Handler) SetParent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetParent(id, req.ParentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parent set"})
}

// ClearParent detaches a group from its current parent
func (h *Handler) ClearParent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ClearParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.ClearParent(id, req.ParentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parent cleared"})
}

// ListSites returns the sites associated with a group
func (h *Handler) ListSites(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	sites, err := h.svc.ListSites(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sites)
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/children", h.ListChildren)
	rg.PUT("/:id/parent", h.SetParent)
	rg.DELETE("/:id/parent", h.ClearParent)
	rg.GET("/:id/sites", h.ListSites)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
	case errs.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store failure"})
	}
}
