package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// Endpoints resolves the API path configured for a resource type
type Endpoints interface {
	Endpoint(resource string) string
}

// Validate checks the workflow structure and that every resource type it uses has an
// endpoint. All problems are returned together.
func Validate(workflow *Workflow, endpoints Endpoints) error {
	var result *multierror.Error
	validate := newValidator()

	for i, stage := range workflow.Stages {
		where := fmt.Sprintf("stage %d (%s)", i+1, stage.Name)

		if err := validate.Struct(stage); err != nil {
			result = appendFieldErrors(result, where, err)
		}

		for j, step := range stage.Steps {
			stepWhere := fmt.Sprintf("%s step %d (%s)", where, j+1, step.Action())

			if err := validate.Struct(step); err != nil {
				result = appendFieldErrors(result, stepWhere, err)
			}

			if identifierValue(step) == nil && step.Action() != ActionFetchAll {
				result = multierror.Append(result, fmt.Errorf("%w: %s: identifier_value is required",
					apperrors.ErrInvalidStep, stepWhere))
			}

			if resource := step.ResourceType(); resource != "" && endpoints.Endpoint(resource) == "" {
				result = multierror.Append(result, fmt.Errorf("%w: %s: api.endpoints.%s",
					apperrors.ErrEndpointNotConfigured, stepWhere, resource))
			}
		}
	}

	return result.ErrorOrNil()
}

func identifierValue(step Step) interface{} {
	switch s := step.(type) {
	case ValidateAttribute:
		return s.IdentifierValue
	case UpdateResource:
		return s.IdentifierValue
	default:
		return nil
	}
}

// newValidator reports fields by their settings name rather than the Go field name
func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

func appendFieldErrors(result *multierror.Error, where string, err error) *multierror.Error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return multierror.Append(result, fmt.Errorf("%w: %s: %s", apperrors.ErrInvalidStep, where, err.Error()))
	}

	for _, fe := range fieldErrors {
		result = multierror.Append(result, fmt.Errorf("%w: %s: %s failed on the '%s' rule",
			apperrors.ErrInvalidStep, where, fe.Field(), fe.Tag()))
	}
	return result
}
