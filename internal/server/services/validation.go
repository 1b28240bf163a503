package services

import (
	"errors"

	"github.com/Flutter-Harsaaa/restaurantmenu/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
)

// validationError converts ozzo-validation output into *common.ValidationError.
func validationError(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for k, v := range verrs {
			if v != nil {
				fields[k] = v.Error()
			}
		}
		return &common.ValidationError{Fields: fields}
	}

	return &common.ValidationError{Fields: map[string]string{"input": err.Error()}}
}
