package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() CreateUserPayload {
	return CreateUserPayload{
		FirstName:   "Grace",
		LastName:    "Hopper",
		Email:       "grace@navy.mil",
		PhoneNumber: "+15550100",
	}
}

func TestCreateUserPayload_Validate(t *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(p *CreateUserPayload)
		expectedField string
	}{
		{name: "valid", mutate: func(p *CreateUserPayload) {}},
		{name: "empty first name", mutate: func(p *CreateUserPayload) { p.FirstName = "" }, expectedField: "first_name"},
		{name: "empty last name", mutate: func(p *CreateUserPayload) { p.LastName = "" }, expectedField: "last_name"},
		{name: "empty email", mutate: func(p *CreateUserPayload) { p.Email = "" }, expectedField: "email"},
		{name: "empty phone", mutate: func(p *CreateUserPayload) { p.PhoneNumber = "" }, expectedField: "phone_number"},
		{name: "email without at", mutate: func(p *CreateUserPayload) { p.Email = "grace.navy.mil" }, expectedField: "email"},
		{name: "email with two ats", mutate: func(p *CreateUserPayload) { p.Email = "a@b@c" }, expectedField: "email"},
		{name: "email empty local", mutate: func(p *CreateUserPayload) { p.Email = "@navy.mil" }, expectedField: "email"},
		{name: "email empty domain", mutate: func(p *CreateUserPayload) { p.Email = "grace@" }, expectedField: "email"},
		{name: "email without dot is accepted", mutate: func(p *CreateUserPayload) { p.Email = "grace@localhost" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(&p)

			err := p.Validate()
			if tc.expectedField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.expectedField, vErr.Field)
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("@"))
}
