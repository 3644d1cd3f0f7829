package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err       error
		want      ErrorType
		retryable bool
	}{
		{errors.New("error, status code: 401, message: bad key"), ErrorTypeAuth, false},
		{errors.New("The model `gpt-9` does not exist"), ErrorTypeModel, false},
		{errors.New("status code: 404"), ErrorTypeEndpoint, false},
		{errors.New("dial tcp: connection refused"), ErrorTypeEndpoint, true},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), ErrorTypeEndpoint, true},
		{errors.New("status code: 429, rate limit reached"), ErrorTypeUnknown, true},
		{errors.New("status code: 503"), ErrorTypeEndpoint, true},
		{gobreaker.ErrOpenState, ErrorTypeUnavailable, true},
		{errors.New("something odd"), ErrorTypeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_KeepsClassified(t *testing.T) {
	orig := newError(ErrorTypeModel, "x", false, nil, 0)
	assert.Same(t, orig, ClassifyError(fmt.Errorf("wrapped: %w", orig)))
	assert.Nil(t, ClassifyError(nil))
}

func TestParseRestaurants(t *testing.T) {
	content := "```json\n" + `{"restaurants":[
		{"name":" A ","address":"x","price_range":"$","operating_hours":{"monday":"10:00-20:00"}},
		{"name":"B","address":"y","price_range":"$$","operating_hours":"garbage"},
		{"name":"C","address":"z","price_range":"$$$"}]}` + "\n```"

	list, err := ParseRestaurants(content, 2)
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)
	assert.Len(t, list[0].OperatingHours, 1)
	assert.Len(t, list[1].OperatingHours, 7)

	_, err = ParseRestaurants("not json", 5)
	assert.Error(t, err)
}
