package workflow

// Supported step actions
const (
	ActionFetchAll          = "fetch_all"
	ActionValidateAttribute = "validate_attribute"
	ActionUpdateResource    = "update_resource"
)

// Workflow is the ordered list of stages read from the "workflow" settings key
type Workflow struct {
	Stages []Stage `yaml:"workflow"`
}

// Stage represents a named group of steps. Stages carry no behaviour of their own.
type Stage struct {
	// Name of the stage (required)
	Name string `mapstructure:"stage" yaml:"stage" validate:"required"`

	// Optional human-readable description of the stage
	Description string `mapstructure:"description" yaml:"description,omitempty"`

	// Ordered list of steps to execute
	Steps []Step `mapstructure:"-" yaml:"steps"`
}

// Step is one declarative action against a resource type. It is implemented only by
// FetchAll, ValidateAttribute and UpdateResource.
type Step interface {
	Action() string
	ResourceType() string
}

// FetchAll retrieves the whole collection of a resource type and remembers it
type FetchAll struct {
	Resource string `mapstructure:"resource" yaml:"resource" validate:"required"`

	// Optional query parameters sent with the request
	Params map[string]interface{} `mapstructure:"params" yaml:"params,omitempty"`
}

// ValidateAttribute checks one attribute of a single record against an expected value
type ValidateAttribute struct {
	Resource        string      `mapstructure:"resource" yaml:"resource" validate:"required"`
	IdentifierKey   string      `mapstructure:"identifier_key" yaml:"identifier_key" validate:"required"`
	IdentifierValue interface{} `mapstructure:"identifier_value" yaml:"identifier_value"`
	Attribute       string      `mapstructure:"attribute" yaml:"attribute" validate:"required"`
	ExpectedValue   interface{} `mapstructure:"expected_value" yaml:"expected_value"`
}

// UpdateResource sends a partial update to a single record
type UpdateResource struct {
	Resource        string                 `mapstructure:"resource" yaml:"resource" validate:"required"`
	IdentifierKey   string                 `mapstructure:"identifier_key" yaml:"identifier_key" validate:"required"`
	IdentifierValue interface{}            `mapstructure:"identifier_value" yaml:"identifier_value"`
	Payload         map[string]interface{} `mapstructure:"payload" yaml:"payload" validate:"required"`
}

func (FetchAll) Action() string          { return ActionFetchAll }
func (ValidateAttribute) Action() string { return ActionValidateAttribute }
func (UpdateResource) Action() string    { return ActionUpdateResource }

func (s FetchAll) ResourceType() string          { return s.Resource }
func (s ValidateAttribute) ResourceType() string { return s.Resource }
func (s UpdateResource) ResourceType() string    { return s.Resource }

// MarshalYAML writes the step back in its settings form, action included
func (s FetchAll) MarshalYAML() (interface{}, error) {
	type fields FetchAll
	return struct {
		Action string `yaml:"action"`
		fields `yaml:",inline"`
	}{ActionFetchAll, fields(s)}, nil
}

// MarshalYAML writes the step back in its settings form, action included
func (s ValidateAttribute) MarshalYAML() (interface{}, error) {
	type fields ValidateAttribute
	return struct {
		Action string `yaml:"action"`
		fields `yaml:",inline"`
	}{ActionValidateAttribute, fields(s)}, nil
}

// MarshalYAML writes the step back in its settings form, action included
func (s UpdateResource) MarshalYAML() (interface{}, error) {
	type fields UpdateResource
	return struct {
		Action string `yaml:"action"`
		fields `yaml:",inline"`
	}{ActionUpdateResource, fields(s)}, nil
}
