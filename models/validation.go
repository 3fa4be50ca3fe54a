package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		mustRegister(v, "priority", func(fl validator.FieldLevel) bool {
			return TaskPriority(fl.Field().String()).Valid()
		})
		mustRegister(v, "status", func(fl validator.FieldLevel) bool {
			return TaskStatus(fl.Field().String()).Valid()
		})
		mustRegister(v, "sortkey", func(fl validator.FieldLevel) bool {
			return SortKey(fl.Field().String()).Valid()
		})
		mustRegister(v, "sortorder", func(fl validator.FieldLevel) bool {
			return SortOrder(fl.Field().String()).Valid()
		})

		// Date has no exported fields, so due dates are checked at struct level.
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			data := sl.Current().Interface().(CreateTaskData)
			if data.DueDate.IsZero() {
				sl.ReportError(data.DueDate, "dueDate", "DueDate", "required", "")
			}
		}, CreateTaskData{})
		v.RegisterStructValidation(func(sl validator.StructLevel) {
			data := sl.Current().Interface().(UpdateTaskData)
			if data.DueDate != nil && data.DueDate.IsZero() {
				sl.ReportError(data.DueDate, "dueDate", "DueDate", "required", "")
			}
		}, UpdateTaskData{})

		validate = v
	})
	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate checks an input record against its schema tags and returns a
// *ValidationError listing every rejected field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %T: %w", v, err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", humanize(field))
	case "email":
		return "Invalid email"
	case "min":
		switch field {
		case "password":
			return "Password too short"
		case "name":
			return "Name required"
		}
		return fmt.Sprintf("%s is required", humanize(field))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", humanize(field), fe.Param())
	case "priority":
		return "Invalid priority"
	case "status":
		return "Invalid status"
	case "sortkey":
		return "Invalid sort key"
	case "sortorder":
		return "Invalid sort order"
	}
	return fmt.Sprintf("%s is invalid", humanize(field))
}

// humanize turns "dueDate" into "Due date".
func humanize(field string) string {
	if field == "" {
		return "Value"
	}
	var b strings.Builder
	for i, r := range field {
		switch {
		case i == 0:
			b.WriteString(strings.ToUpper(string(r)))
		case r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
			b.WriteString(strings.ToLower(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
