package workflow

import (
	"fmt"

	apperrors "github.com/deploymenttheory/go-api-runner/internal/errors"
	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
)

// SettingsKey is the settings key holding the list of stages
const SettingsKey = "workflow"

// Source returns top-level settings values with the case of nested keys preserved
type Source interface {
	Raw(key string) interface{}
}

// rawStage is a stage as it appears in the settings document, before its steps are typed
type rawStage struct {
	Name        string                   `mapstructure:"stage"`
	Description string                   `mapstructure:"description"`
	Steps       []map[string]interface{} `mapstructure:"steps"`
}

// Load reads the workflow from the settings
func Load(src Source) (*Workflow, error) {
	raw := src.Raw(SettingsKey)
	if raw == nil {
		return nil, fmt.Errorf("%w: no %q key defined", apperrors.ErrConfigInvalid, SettingsKey)
	}
	return Decode(raw)
}

// Decode converts a generic list of stages into a Workflow. Every malformed stage or step
// is reported, not just the first.
func Decode(raw interface{}) (*Workflow, error) {
	var stages []rawStage
	if err := decodeStrict(raw, &stages); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrConfigInvalid, err.Error())
	}

	var result *multierror.Error
	workflow := &Workflow{Stages: make([]Stage, 0, len(stages))}

	for i, rs := range stages {
		stage := Stage{Name: rs.Name, Description: rs.Description}

		for j, fields := range rs.Steps {
			step, err := decodeStep(fields)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("stage %d (%s) step %d: %w", i+1, rs.Name, j+1, err))
				continue
			}
			stage.Steps = append(stage.Steps, step)
		}

		workflow.Stages = append(workflow.Stages, stage)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return workflow, nil
}

// decodeStep picks the concrete step type from the "action" field
func decodeStep(fields map[string]interface{}) (Step, error) {
	action, _ := fields["action"].(string)

	params := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if k != "action" {
			params[k] = v
		}
	}

	switch action {
	case ActionFetchAll:
		var step FetchAll
		if err := decodeStrict(params, &step); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidStep, err.Error())
		}
		return step, nil

	case ActionValidateAttribute:
		var step ValidateAttribute
		if err := decodeStrict(params, &step); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidStep, err.Error())
		}
		return step, nil

	case ActionUpdateResource:
		var step UpdateResource
		if err := decodeStrict(params, &step); err != nil {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidStep, err.Error())
		}
		return step, nil

	case "":
		return nil, fmt.Errorf("%w: action is required", apperrors.ErrInvalidStep)

	default:
		return nil, fmt.Errorf("%w: '%s'", apperrors.ErrUnknownAction, action)
	}
}

func decodeStrict(input, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      output,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
