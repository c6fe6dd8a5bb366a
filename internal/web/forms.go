package web

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// A nil field means the form value was absent, which required rejects;
// an explicit "0" binds to a non-nil zero.
type playForm struct {
	Cell *int `validate:"required,min=0,max=8"`
}

type jumpForm struct {
	Step *int `validate:"required,min=0"`
}

// formInt binds an optional integer form field. A present value that is not
// a number is an error.
func formInt(r *http.Request, key string) (*int, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	if !r.Form.Has(key) {
		return nil, nil
	}
	v, err := strconv.Atoi(r.Form.Get(key))
	if err != nil {
		return nil, errBadForm
	}
	return &v, nil
}

func parsePlayForm(r *http.Request) (playForm, error) {
	cell, err := formInt(r, "cell")
	if err != nil {
		return playForm{}, err
	}
	f := playForm{Cell: cell}
	return f, validate.Struct(f)
}

func parseJumpForm(r *http.Request) (jumpForm, error) {
	step, err := formInt(r, "step")
	if err != nil {
		return jumpForm{}, err
	}
	f := jumpForm{Step: step}
	return f, validate.Struct(f)
}
