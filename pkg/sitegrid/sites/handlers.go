package sites

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sitegrid/pkg/sitegrid/errs"
	"sitegrid/pkg/sitegrid/models"
	"sitegrid/pkg/sitegrid/query"
)

// Handler handles site-related requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new sites handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateFrenchSiteRequest represents the request to create a French site
type CreateFrenchSiteRequest struct {
	Name                    string       `json:"name" binding:"required"`
	InstallationDate        *models.Date `json:"installation_date"`
	MinPowerMegawatt        *float64     `json:"min_power_megawatt"`
	MaxPowerMegawatt        *float64     `json:"max_power_megawatt"`
	UsefulEnergyAt1Megawatt *float64     `json:"useful_energy_at_1_megawatt"`
}

// CreateItalianSiteRequest represents the request to create an Italian site
type CreateItalianSiteRequest struct {
	Name             string       `json:"name" binding:"required"`
	InstallationDate *models.Date `json:"installation_date"`
	MinPowerMegawatt *float64     `json:"min_power_megawatt"`
	MaxPowerMegawatt *float64     `json:"max_power_megawatt"`
	Efficiency       *float64     `json:"efficiency"`
}

// UpdateSiteRequest represents a partial site update; omitted fields are
// left unchanged
type UpdateSiteRequest struct {
	Name                    *string             `json:"name"`
	Country                 *models.SiteCountry `json:"country"`
	InstallationDate        *models.Date        `json:"installation_date"`
	MinPowerMegawatt        *float64            `json:"min_power_megawatt"`
	MaxPowerMegawatt        *float64            `json:"max_power_megawatt"`
	UsefulEnergyAt1Megawatt *float64            `json:"useful_energy_at_1_megawatt"`
	Efficiency              *float64            `json:"efficiency"`
}

// CreateFrench creates a new French site
func (h *Handler) CreateFrench(c *gin.Context) {
	var req CreateFrenchSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	site, err := h.svc.CreateFrench(BaseInput{
		Name:             req.Name,
		InstallationDate: req.InstallationDate,
		MinPowerMegawatt: req.MinPowerMegawatt,
		MaxPowerMegawatt: req.MaxPowerMegawatt,
	}, req.UsefulEnergyAt1Megawatt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, site)
}

// CreateItalian creates a new Italian site
func (h *Handler) CreateItalian(c *gin.Context) {
	var req CreateItalianSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	site, err := h.svc.CreateItalian(BaseInput{
		Name:             req.Name,
		InstallationDate: req.InstallationDate,
		MinPowerMegawatt: req.MinPowerMegawatt,
		MaxPowerMegawatt: req.MaxPowerMegawatt,
	}, req.Efficiency)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, site)
}

// List returns sites with filtering, sorting and pagination
func (h *Handler) List(c *gin.Context) {
	params, err := query.ParseParams(c, siteFields)
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

// Get returns a specific site
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	site, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// Update applies a partial update to a site
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	site, err := h.svc.Update(id, Update{
		Name:                    req.Name,
		Country:                 req.Country,
		InstallationDate:        req.InstallationDate,
		MinPowerMegawatt:        req.MinPowerMegawatt,
		MaxPowerMegawatt:        req.MaxPowerMegawatt,
		UsefulEnergyAt1Megawatt: req.UsefulEnergyAt1Megawatt,
		Efficiency:              req.Efficiency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// Delete removes a site and its group associations
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Site deleted"})
}

// AddToGroup associates the site with a group
func (h *Handler) AddToGroup(c *gin.Context) {
	siteID, ok := parseID(c)
	if !ok {
		return
	}
	groupID, ok := parseParamID(c, "groupID")
	if !ok {
		return
	}
	if err := h.svc.AddToGroup(siteID, groupID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Site added to group"})
}

// RemoveFromGroup drops the association between the site and a group
func (h *Handler) RemoveFromGroup(c *gin.Context) {
	siteID, ok := parseID(c)
	if !ok {
		return
	}
	groupID, ok := parseParamID(c, "groupID")
	if !ok {
		return
	}
	if err := h.svc.RemoveFromGroup(siteID, groupID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Site removed from group"})
}

// ListGroups returns the groups the site belongs to
func (h *Handler) ListGroups(c *gin.Context) {
	siteID, ok := parseID(c)
	if !ok {
		return
	}
	groups, err := h.svc.ListGroups(siteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// RegisterRoutes registers site routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/france", h.CreateFrench)
	rg.POST("/italy", h.CreateItalian)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/groups", h.ListGroups)
	rg.POST("/:id/groups/:groupID", h.AddToGroup)
	rg.DELETE("/:id/groups/:groupID", h.RemoveFromGroup)
}

func parseID(c *gin.Context) (uint, bool) {
	return parseParamID(c, "id")
}

func parseParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errs.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "Site or group not found"})
	case errs.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store failure"})
	}
}
