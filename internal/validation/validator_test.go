package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Party int    `json:"party_size" validate:"gte=1,lte=50"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=3"`
}

func TestStruct_TranslatesByJSONName(t *testing.T) {
	err := Struct(sample{Email: "nope", Date: "06/01/2025", Party: 0, Name: "abcd"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	msgs := map[string]string{}
	for _, f := range verr.Fields {
		msgs[f.Field] = f.Message
	}
	assert.Equal(t, "email must be a valid email address", msgs["email"])
	assert.Equal(t, "date must match the layout 2006-01-02", msgs["date"])
	assert.Equal(t, "party_size must be greater than or equal to 1", msgs["party_size"])
	assert.Equal(t, "name must be at most 3 characters", msgs["name"])
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "a@b.co", Date: "2025-06-01", Party: 2}))
}
