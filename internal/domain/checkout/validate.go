package checkout

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	"github.com/lujangrego99/katsuda-store-sub000/internal/domain/order"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the request without touching any store. It returns a
// *ValidationError listing every failing field.
func (r *Request) Validate() error {
	var fields []FieldError

	if err := collectFieldErrors(validate.Struct(r), "", &fields); err != nil {
		return err
	}
	if r.ShippingMethod == order.ShippingDelivery {
		if r.Address == nil {
			fields = append(fields, FieldError{Field: "address", Reason: "required"})
		} else if err := collectFieldErrors(validate.Struct(r.Address), "address.", &fields); err != nil {
			return err
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func collectFieldErrors(err error, prefix string, dst *[]FieldError) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate request")
	}
	for _, fe := range verrs {
		// Drop the root struct name: "Request.contact.email" -> "contact.email".
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		*dst = append(*dst, FieldError{Field: prefix + path, Reason: fe.Tag()})
	}
	return nil
}
