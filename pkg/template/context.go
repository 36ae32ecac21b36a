package template

// Context provides variables and the name of the template being rendered.
// Evaluation never modifies a Context.
type Context interface {
	CurrentTemplateName() string
	Lookup(name string) (Value, bool)
}

// MapContext is a Context backed by a map of variables.
type MapContext struct {
	name      string
	variables map[string]Value
}

func NewMapContext(name string, variables map[string]Value) *MapContext {
	return &MapContext{
		name:      name,
		variables: variables,
	}
}

func (c *MapContext) CurrentTemplateName() string {
	return c.name
}

func (c *MapContext) Lookup(name string) (Value, bool) {
	if c.variables == nil {
		return nil, false
	}
	v, ok := c.variables[name]
	return v, ok
}

// Set binds a variable, replacing the previous binding.
func (c *MapContext) Set(name string, v Value) {
	if c.variables == nil {
		c.variables = make(map[string]Value)
	}
	c.variables[name] = v
}
