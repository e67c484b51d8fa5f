package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/innocell/innocell/core"
)

var (
	orderingParam = "ordering"
	limitParam    = "limit"
	offsetParam   = "offset"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPagination reads ?limit= and ?offset=; invalid values are ignored.
func bindPagination(ctx echo.Context) core.Pagination {
	var page core.Pagination
	if v, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil {
		page.Limit = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(offsetParam)); err == nil {
		page.Offset = v
	}
	page.Clean()
	return page
}

// boolParam parses an optional boolean query param.
func boolParam(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}
