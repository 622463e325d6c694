package query

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"sitegrid/pkg/sitegrid/errs"
	"sitegrid/pkg/sitegrid/models"
)

// ParseParams binds list parameters from the request query string:
// page, items_per_page, sort_by, sort_order, plus one parameter per
// schema field (Date fields use <name>_from / <name>_to for ranges).
func ParseParams(c *gin.Context, fields Fields) (Params, error) {
	p := Params{
		Page:         1,
		ItemsPerPage: 10,
		SortOrder:    "desc",
		Filters:      map[string]any{},
	}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, errs.Validation(errs.ReasonBadPagination)
		}
		p.Page = n
	}
	if v := c.Query("items_per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, errs.Validation(errs.ReasonBadPagination)
		}
		p.ItemsPerPage = n
	}
	p.SortBy = c.Query("sort_by")
	if v := c.Query("sort_order"); v != "" {
		p.SortOrder = v
	}

	for name, f := range fields {
		switch f.Kind {
		case Date:
			if v := c.Query(name + "_from"); v != "" {
				d, err := models.ParseDate(v)
				if err != nil {
					return p, errs.Validation("invalid date for " + name + "_from")
				}
				p.Filters[name+"__gte"] = d
			}
			if v := c.Query(name + "_to"); v != "" {
				d, err := models.ParseDate(v)
				if err != nil {
					return p, errs.Validation("invalid date for " + name + "_to")
				}
				p.Filters[name+"__lte"] = d
			}
		case Number:
			if v := c.Query(name); v != "" {
				x, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return p, errs.Validation("invalid number for " + name)
				}
				p.Filters[name] = x
			}
		default:
			if v := c.Query(name); v != "" {
				p.Filters[name] = v
			}
		}
	}

	return p, nil
}
