package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/FARHATREKAYA/quran-app/core"
)

var orderingParam = "ordering"

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
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Pagination binds `skip` and `limit`; invalid values fall back to the defaults.
type Pagination struct {
	core.Page
}

func (p *Pagination) Bind(ctx echo.Context) {
	p.Skip, _ = strconv.Atoi(ctx.QueryParam("skip"))
	p.Limit, _ = strconv.Atoi(ctx.QueryParam("limit"))
	p.Clean()
}

// intParam parses a path parameter. Malformed ids are reported as not found.
func intParam(ctx echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(ctx.Param(name))
	if err != nil || v < 1 {
		return 0, errHttpNotFound
	}
	return v, nil
}

func int64Param(ctx echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || v < 1 {
		return 0, errHttpNotFound
	}
	return v, nil
}

// boolQuery returns nil when `name` is absent or not a boolean.
func boolQuery(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)
