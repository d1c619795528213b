package domain

import (
	"errors"
	"fmt"
)

// AttributeType classifies how an attribute is stored and tracked
type AttributeType string

const (
	AttributeString  AttributeType = "string"
	AttributeText    AttributeType = "text"
	AttributeEnum    AttributeType = "enum"
	AttributeCaseLog AttributeType = "caselog"
)

// AttributeDef describes one attribute of a class
type AttributeDef struct {
	Code   string        `yaml:"code"`
	Label  string        `yaml:"label"`
	Type   AttributeType `yaml:"type"`
	Values []string      `yaml:"values,omitempty"` // allowed values for enums
}

// DisplayLabel returns the label, falling back to the attribute code
func (a AttributeDef) DisplayLabel() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Code
}

// IsCaseLog reports whether the attribute holds a case log
func (a AttributeDef) IsCaseLog() bool {
	return a.Type == AttributeCaseLog
}

// ClassDef describes a class of business objects
type ClassDef struct {
	Name         string         `yaml:"name"`
	Label        string         `yaml:"label"`
	StateAttCode string         `yaml:"state_attribute,omitempty"`
	Attributes   []AttributeDef `yaml:"attributes"`
}

// Attribute looks up an attribute definition by code
func (c *ClassDef) Attribute(code string) (AttributeDef, bool) {
	for _, att := range c.Attributes {
		if att.Code == code {
			return att, true
		}
	}
	return AttributeDef{}, false
}

// CaseLogAttCodes returns the case log attribute codes in declaration order
func (c *ClassDef) CaseLogAttCodes() []string {
	codes := make([]string, 0)
	for _, att := range c.Attributes {
		if att.IsCaseLog() {
			codes = append(codes, att.Code)
		}
	}
	return codes
}

// Validate returns an error if the class definition is unusable
func (c *ClassDef) Validate() error {
	if c.Name == "" {
		return errors.New("class name is required")
	}
	seen := make(map[string]bool)
	for _, att := range c.Attributes {
		if att.Code == "" {
			return fmt.Errorf("class %s: attribute code is required", c.Name)
		}
		if att.Code == "name" {
			return fmt.Errorf("class %s: attribute code 'name' is reserved", c.Name)
		}
		if seen[att.Code] {
			return fmt.Errorf("class %s: duplicate attribute %s", c.Name, att.Code)
		}
		seen[att.Code] = true
		switch att.Type {
		case AttributeString, AttributeText, AttributeCaseLog:
		case AttributeEnum:
			if len(att.Values) == 0 {
				return fmt.Errorf("class %s: enum attribute %s has no values", c.Name, att.Code)
			}
		default:
			return fmt.Errorf("class %s: attribute %s has unknown type %q", c.Name, att.Code, att.Type)
		}
	}
	if c.StateAttCode != "" {
		att, ok := c.Attribute(c.StateAttCode)
		if !ok {
			return fmt.Errorf("class %s: state attribute %s is not declared", c.Name, c.StateAttCode)
		}
		if att.Type != AttributeEnum {
			return fmt.Errorf("class %s: state attribute %s must be an enum", c.Name, c.StateAttCode)
		}
	}
	return nil
}

// ClassRegistry holds the known classes, keyed by name
type ClassRegistry struct {
	classes map[string]*ClassDef
	order   []string
}

// NewClassRegistry builds a registry from the given definitions.
// Later definitions replace earlier ones with the same name.
func NewClassRegistry(defs ...ClassDef) (*ClassRegistry, error) {
	r := &ClassRegistry{classes: make(map[string]*ClassDef)}
	for i := range defs {
		def := defs[i]
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.classes[def.Name]; !exists {
			r.order = append(r.order, def.Name)
		}
		r.classes[def.Name] = &def
	}
	return r, nil
}

// Get returns the class definition for name
func (r *ClassRegistry) Get(name string) (*ClassDef, error) {
	def, ok := r.classes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, name)
	}
	return def, nil
}

// List returns all classes in registration order
func (r *ClassRegistry) List() []*ClassDef {
	out := make([]*ClassDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.classes[name])
	}
	return out
}

// DefaultClasses returns the built-in class definitions
func DefaultClasses() []ClassDef {
	ticketStates := []string{"new", "assigned", "pending", "resolved", "closed"}
	priorities := []string{"1", "2", "3", "4"}

	return []ClassDef{
		{
			Name:         "UserRequest",
			Label:        "User Request",
			StateAttCode: "status",
			Attributes: []AttributeDef{
				{Code: "title", Label: "Title", Type: AttributeString},
				{Code: "description", Label: "Description", Type: AttributeText},
				{Code: "status", Label: "Status", Type: AttributeEnum, Values: ticketStates},
				{Code: "priority", Label: "Priority", Type: AttributeEnum, Values: priorities},
				{Code: "caller", Label: "Caller", Type: AttributeString},
				{Code: "agent", Label: "Agent", Type: AttributeString},
				{Code: "public_log", Label: "Public log", Type: AttributeCaseLog},
				{Code: "private_log", Label: "Private log", Type: AttributeCaseLog},
			},
		},
		{
			Name:         "Incident",
			Label:        "Incident",
			StateAttCode: "status",
			Attributes: []AttributeDef{
				{Code: "title", Label: "Title", Type: AttributeString},
				{Code: "description", Label: "Description", Type: AttributeText},
				{Code: "status", Label: "Status", Type: AttributeEnum, Values: ticketStates},
				{Code: "priority", Label: "Priority", Type: AttributeEnum, Values: priorities},
				{Code: "impact", Label: "Impact", Type: AttributeEnum, Values: []string{"department", "service", "person"}},
				{Code: "public_log", Label: "Public log", Type: AttributeCaseLog},
			},
		},
		{
			Name:  "Server",
			Label: "Server",
			Attributes: []AttributeDef{
				{Code: "status", Label: "Status", Type: AttributeEnum, Values: []string{"implementation", "production", "obsolete"}},
				{Code: "os_family", Label: "OS family", Type: AttributeString},
				{Code: "cpu", Label: "CPU", Type: AttributeString},
				{Code: "ram", Label: "RAM", Type: AttributeString},
				{Code: "location", Label: "Location", Type: AttributeString},
				{Code: "description", Label: "Description", Type: AttributeText},
			},
		},
	}
}
