package apperror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMapsToStatusAndType(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		typ    string
	}{
		{Field(CodeRequired, "This field is required.", "email"), http.StatusBadRequest, "validation_error"},
		{NotAuthenticated(), http.StatusUnauthorized, "client_error"},
		{PermissionDenied(), http.StatusForbidden, "client_error"},
		{NotFound(), http.StatusNotFound, "client_error"},
		{New(KindConflict, CodeUnique, "exists"), http.StatusConflict, "client_error"},
		{Server(fmt.Errorf("boom")), http.StatusInternalServerError, "server_error"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus())
		assert.Equal(t, tc.typ, tc.err.Type())
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	base := New(KindAuthorization, CodeDisableStaff, "staff")
	wrapped := fmt.Errorf("disable: %w", base)

	found := As(wrapped)
	require.NotNil(t, found)
	assert.True(t, found.HasCode(CodeDisableStaff))
	assert.True(t, HasCode(wrapped, CodeDisableStaff))
	assert.False(t, HasCode(fmt.Errorf("plain"), CodeDisableStaff))
}

func TestValidationCollectsAndMerges(t *testing.T) {
	e := Validation()
	assert.Nil(t, e.OrNil())

	nested := Field(CodeRequired, "This field is required.", "city")
	e.Add(CodeInvalid, "bad", "").Merge("address", nested)

	require.Error(t, e.OrNil())
	errs := e.Errors()
	require.Len(t, errs, 2)
	assert.Nil(t, errs[0].Attr)
	require.NotNil(t, errs[1].Attr)
	assert.Equal(t, "address.city", *errs[1].Attr)
}
