package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Username string  `json:"username" validate:"required,max=150,username"`
	Slug     string  `json:"slug" validate:"required,max=50,slug"`
	Score    int     `json:"score" validate:"min=1,max=10"`
	Bio      *string `json:"bio" validate:"omitnil,max=5"`
}

func valid() sample {
	return sample{Email: "a@b.co", Username: "a.b+c@d-e_f", Slug: "sci-fi_1", Score: 5}
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var ve *Errors
	require.True(t, errors.As(err, &ve), "want *Errors, got %v", err)
	return ve.Fields
}

func TestStruct_OK(t *testing.T) {
	assert.NoError(t, Struct(valid()))
}

func TestStruct_FieldNamesFromJSON(t *testing.T) {
	s := valid()
	s.Email = "nope"
	s.Score = 11
	fields := fieldsOf(t, Struct(s))
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "score")
	assert.Equal(t, []string{"Ensure this value is less than or equal to 10."}, fields["score"])
}

func TestStruct_CustomTags(t *testing.T) {
	cases := map[string]func(*sample){
		"slug with space":  func(s *sample) { s.Slug = "sci fi" },
		"username symbols": func(s *sample) { s.Username = "bad name!" },
		"username me":      func(s *sample) { s.Username = "me" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := valid()
			mutate(&s)
			assert.Len(t, fieldsOf(t, Struct(s)), 1)
		})
	}
}

func TestStruct_OmitNil(t *testing.T) {
	s := valid()
	long := "too long"
	s.Bio = &long
	assert.Contains(t, fieldsOf(t, Struct(s)), "bio")

	s.Bio = nil
	assert.NoError(t, Struct(s))
}

func TestErrors(t *testing.T) {
	var e Errors
	assert.Nil(t, e.Err())
	e.Add("b", "two")
	e.Add("a", "one")
	require.Error(t, e.Err())
	assert.Equal(t, "validation failed: a: one, b: two", e.Error())
	assert.Equal(t, []string{"x"}, Field("f", "x").Fields["f"])
}
