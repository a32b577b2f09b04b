package dto

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	emaildomain "mailboard-backend/internal/email/domain"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateColumnOrders, ReorderColumnsRequest{})
	return v
}

// validateColumnOrders rejects duplicate ids, duplicate orders and negative orders
func validateColumnOrders(sl validator.StructLevel) {
	req := sl.Current().Interface().(ReorderColumnsRequest)
	seenIDs := make(map[string]bool, len(req.Orders))
	seenOrders := make(map[int]bool, len(req.Orders))
	for i, o := range req.Orders {
		field := "orders[" + strconv.Itoa(i) + "]"
		if o.ID == "" {
			sl.ReportError(o.ID, field+".id", "ID", "required", "")
		} else if seenIDs[o.ID] {
			sl.ReportError(o.ID, field+".id", "ID", "unique", "")
		}
		if o.Order < 0 {
			sl.ReportError(o.Order, field+".order", "Order", "gte", "0")
		} else if seenOrders[o.Order] {
			sl.ReportError(o.Order, field+".order", "Order", "unique", "")
		}
		seenIDs[o.ID] = true
		seenOrders[o.Order] = true
	}
}

// Validate runs the tag rules of a request DTO and converts failures to field errors
func Validate(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &emaildomain.ValidationError{}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), message(fe))
	}
	return out.OrNil()
}

// fieldPath drops the struct name prefix so "CreateColumnRequest.label_id" becomes "label_id"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		parts := strings.Fields(fe.Param())
		return "is required for label_option " + parts[len(parts)-1]
	case "required_without":
		return "is required when preset is empty"
	case "excluded_with":
		return "cannot be combined with preset"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must contain at least " + fe.Param() + " item"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "unique":
		return "must be unique"
	default:
		return "is invalid"
	}
}
