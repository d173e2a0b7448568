package workflow

import "sort"

// ExecutionContext holds the last fetched collection of each resource type for the
// lifetime of one run. Later steps resolve records against it. It is owned by a single
// Runner and is not safe for concurrent use.
type ExecutionContext struct {
	lists map[string][]interface{}
}

// NewExecutionContext returns an empty context
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{lists: make(map[string][]interface{})}
}

// Remember stores records under resourceType, replacing anything held before
func (c *ExecutionContext) Remember(resourceType string, records []interface{}) {
	if records == nil {
		records = []interface{}{}
	}
	c.lists[resourceType] = records
}

// Recall returns the last list remembered for resourceType. An empty list that was
// remembered is still reported as present.
func (c *ExecutionContext) Recall(resourceType string) ([]interface{}, bool) {
	records, ok := c.lists[resourceType]
	return records, ok
}

// ResourceTypes returns the sorted names currently held
func (c *ExecutionContext) ResourceTypes() []string {
	names := make([]string, 0, len(c.lists))
	for name := range c.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
