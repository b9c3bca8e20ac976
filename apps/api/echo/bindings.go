package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iamthanushgowdap/apsconnect/core"
)

var orderingParam = "ordering"

// orderableFields whitelists the account columns clients may sort on.
// Ordering terms are rendered into ORDER BY verbatim, so anything not
// listed here is dropped.
var orderableFields = map[string]bool{
	"name":       true,
	"email":      true,
	"usn":        true,
	"role":       true,
	"status":     true,
	"branch":     true,
	"semester":   true,
	"created_at": true,
	"updated_at": true,
	"last_login": true,
}

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if !orderableFields[field] {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}
