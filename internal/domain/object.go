package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Object is a business object tracked in the CMDB.
// Case log values are not held here; they live in their own table.
type Object struct {
	ID         int64
	Class      string
	Name       string
	Attributes map[string]string
	StateHash  string // fingerprint of Name and Attributes as last stored; empty for older rows
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewObject creates a new object of the given class
func NewObject(class, name string) *Object {
	now := time.Now()
	return &Object{
		Class:      class,
		Name:       name,
		Attributes: make(map[string]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Get returns an attribute value, or "" when unset
func (o *Object) Get(attCode string) string {
	if attCode == "name" {
		return o.Name
	}
	return o.Attributes[attCode]
}

// Clone returns a deep copy of the object
func (o *Object) Clone() *Object {
	c := *o
	c.Attributes = make(map[string]string, len(o.Attributes))
	for k, v := range o.Attributes {
		c.Attributes[k] = v
	}
	return &c
}

// String returns "Class::ID"
func (o *Object) String() string {
	return fmt.Sprintf("%s::%d", o.Class, o.ID)
}

// Validate returns an error if the object does not conform to its class
func (o *Object) Validate(class *ClassDef) error {
	if o.Class == "" {
		return fmt.Errorf("%w: class is required", ErrInvalidObject)
	}
	if class == nil || class.Name != o.Class {
		return fmt.Errorf("%w: class definition mismatch for %s", ErrInvalidObject, o.Class)
	}
	if o.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidObject)
	}
	for code, value := range o.Attributes {
		att, ok := class.Attribute(code)
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, o.Class, code)
		}
		if att.IsCaseLog() {
			return fmt.Errorf("%w: %s is a case log and cannot be set directly", ErrInvalidObject, code)
		}
		if att.Type == AttributeEnum && value != "" && !slices.Contains(att.Values, value) {
			return fmt.Errorf("%w: %q is not an allowed value for %s", ErrInvalidObject, value, code)
		}
	}
	return nil
}

// ObjectRef identifies an object without loading it
type ObjectRef struct {
	Class string
	ID    int64
}

// Validate returns an error if the reference cannot scope a query
func (r ObjectRef) Validate() error {
	if r.Class == "" {
		return errors.New("object class is required")
	}
	if r.ID <= 0 {
		return fmt.Errorf("invalid object key %d", r.ID)
	}
	return nil
}

// String returns "Class::ID"
func (r ObjectRef) String() string {
	return fmt.Sprintf("%s::%d", r.Class, r.ID)
}

// Ref returns the reference of the object
func (o *Object) Ref() ObjectRef {
	return ObjectRef{Class: o.Class, ID: o.ID}
}
