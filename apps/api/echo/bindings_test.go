package echoapi

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iamthanushgowdap/apsconnect/core"
)

func TestOrdering_Bind(t *testing.T) {
	e := echo.New()

	bind := func(query string) []core.DBOrdering {
		ctx, _ := newRequest(e, http.MethodGet, "/accounts"+query)
		ord := new(Ordering)
		ord.Bind(ctx)
		return ord.Orderings
	}

	assert.Nil(t, bind(""))
	assert.Equal(t, []core.DBOrdering{
		{Field: "name", Ascending: true},
		{Field: "created_at", Ascending: false},
	}, bind("?ordering=name,-created_at"))

	t.Run("unknown fields are dropped", func(t *testing.T) {
		assert.Equal(t, []core.DBOrdering{
			{Field: "email", Ascending: true},
		}, bind("?ordering=email,password_hash,-nope%3Bdrop"))
	})

	t.Run("nothing but unknown fields", func(t *testing.T) {
		assert.Nil(t, bind("?ordering=1%3DDROP+TABLE+account"))
	})
}
