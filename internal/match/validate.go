package match

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	domerrors "github.com/garyellow/ntpu-section-swap/internal/errors"
	"github.com/garyellow/ntpu-section-swap/internal/section"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports why an intent cannot take part in matching. The returned
// error joins one *errors.ValidationError per problem and matches
// errors.ErrInvalidIntent. A nil intent is invalid.
func Validate(in *storage.Intent) error {
	if in == nil {
		return domerrors.NewValidationError("intent", "missing")
	}

	var errs []error
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domerrors.NewValidationError("intent", err.Error())
		}
		for _, fe := range fieldErrs {
			errs = append(errs, domerrors.NewValidationError(fieldName(fe), "failed "+fe.Tag()))
		}
	}

	if in.Course != "" && section.CourseToken(in.Course) == "" {
		errs = append(errs, domerrors.NewValidationError("course", "has no letters or digits"))
	}

	hasCurrent := in.Current != nil && !in.CurrentKey().IsZero()
	hasDesired := in.Desired != nil && (in.Desired.AnySection || !in.DesiredKey().IsZero())

	switch in.Kind {
	case storage.KindSwap:
		if !hasCurrent {
			errs = append(errs, domerrors.NewValidationError("current_section", "required for swap"))
		}
		if in.Desired == nil || in.DesiredKey().IsZero() {
			errs = append(errs, domerrors.NewValidationError("desired_section", "swap needs a concrete section"))
		}
	case storage.KindDrop:
		if !hasCurrent {
			errs = append(errs, domerrors.NewValidationError("current_section", "required for drop"))
		}
		if in.Desired != nil {
			errs = append(errs, domerrors.NewValidationError("desired_section", "not allowed for drop"))
		}
	case storage.KindRequest:
		if !hasDesired {
			errs = append(errs, domerrors.NewValidationError("desired_section", "required for request"))
		}
		if in.Current != nil {
			errs = append(errs, domerrors.NewValidationError("current_section", "not allowed for request"))
		}
	case storage.KindDropAndRequest:
		if !hasCurrent {
			errs = append(errs, domerrors.NewValidationError("current_section", "required for drop_and_request"))
		}
		if !hasDesired {
			errs = append(errs, domerrors.NewValidationError("desired_section", "required for drop_and_request"))
		}
		switch {
		case section.CourseToken(in.RequestCourse) == "":
			errs = append(errs, domerrors.NewValidationError("request_course", "required for drop_and_request"))
		case section.CourseToken(in.RequestCourse) == section.CourseToken(in.Course):
			errs = append(errs, domerrors.NewValidationError("request_course", "must differ from the dropped course"))
		}
	}

	return errors.Join(errs...)
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "OwnerID":
		return "owner_id"
	case "RequestCourse":
		return "request_course"
	case "ContactHandle":
		return "contact_handle"
	case "DisplayName":
		return "display_name"
	}
	return strings.ToLower(fe.Field())
}
