package echoapi

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/iamthanushgowdap/apsconnect/core"
	"github.com/iamthanushgowdap/apsconnect/core/account"
)

func Test_errorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "http error", err: errHttpNotFound, want: http.StatusNotFound},
		{name: "wrapped http error", err: errors.Wrap(errAccountPending, "authenticating"), want: http.StatusForbidden},
		{name: "wrapped validation error", err: errors.Wrap(core.NewValidationError(errors.New("nope")), "registering"), want: http.StatusBadRequest},
		{name: "permission denied", err: errors.Wrap(core.ErrPermissionDenied, "approving account"), want: http.StatusForbidden},
		{name: "not found", err: errors.Wrap(account.ErrNotFound, "finding account"), want: http.StatusNotFound},
		{name: "status conflict", err: account.ErrStatusConflict, want: http.StatusConflict},
		{name: "invalid transition", err: errors.Wrap(account.ErrInvalidTransition, "declining"), want: http.StatusConflict},
		{name: "anything else", err: errors.New("db on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}
