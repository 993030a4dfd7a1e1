package ioc

import (
	"reflect"
)

// Factory builds one component instance. It may resolve its own dependencies through r;
// those calls are recorded as dependency edges and participate in cycle detection.
type Factory func(r Resolver) (any, error)

// Condition is a predicate that must hold for a definition to be resolvable.
type Condition func(c *ApplicationContext) bool

// Definition is an immutable registration record describing how to build and lease one
// named component. Build it with NewDefinition.
type Definition struct {
	name         string
	factory      Factory
	scope        Scope
	source       string
	typ          reflect.Type
	eager        bool
	conditions   []Condition
	dependencies []string
	optional     bool
	phase        int
}

// DefinitionOption configures a Definition under construction.
type DefinitionOption func(*Definition)

// NewDefinition creates a singleton definition named name. Options adjust scope, eagerness,
// conditions, declared dependencies and diagnostics metadata.
func NewDefinition(name string, factory Factory, opts ...DefinitionOption) *Definition {
	d := &Definition{
		name:    name,
		factory: factory,
		scope:   ScopeSingleton,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// WithScope sets the lifetime policy.
func WithScope(scope Scope) DefinitionOption {
	return func(d *Definition) { d.scope = scope }
}

// Eager marks the definition for instantiation during Refresh.
func Eager() DefinitionOption {
	return func(d *Definition) { d.eager = true }
}

// WithConditions appends predicates that must all hold for the definition to resolve.
func WithConditions(conds ...Condition) DefinitionOption {
	return func(d *Definition) {
		d.conditions = append(d.conditions[:len(d.conditions):len(d.conditions)], conds...)
	}
}

// DependsOn declares names that must be constructed before this one. Used for eager
// ordering; runtime Get calls made by the factory are recorded separately.
func DependsOn(names ...string) DefinitionOption {
	return func(d *Definition) {
		d.dependencies = append(d.dependencies[:len(d.dependencies):len(d.dependencies)], names...)
	}
}

// Optional lets TryGet report the definition as absent when its conditions fail.
func Optional() DefinitionOption {
	return func(d *Definition) { d.optional = true }
}

// WithSource records where the definition came from, for diagnostics.
func WithSource(source string) DefinitionOption {
	return func(d *Definition) { d.source = source }
}

// WithType records the type tag of the produced instance, for diagnostics.
func WithType(t reflect.Type) DefinitionOption {
	return func(d *Definition) { d.typ = t }
}

// TypeOf is a convenience for WithType(reflect.TypeOf((*T)(nil)).Elem()).
func TypeOf[T any]() DefinitionOption {
	return WithType(reflect.TypeOf((*T)(nil)).Elem())
}

// WithPhase records the expected lifecycle phase. An instance implementing Phased
// overrides it.
func WithPhase(phase int) DefinitionOption {
	return func(d *Definition) { d.phase = phase }
}

// Name returns the unique component name.
func (d *Definition) Name() string { return d.name }

// Scope returns the caching scope.
func (d *Definition) Scope() Scope { return d.scope }

// Source returns where the definition was registered from, if recorded.
func (d *Definition) Source() string { return d.source }

// IsEager reports whether Refresh instantiates the definition.
func (d *Definition) IsEager() bool { return d.eager }

// IsOptional reports whether failed conditions make the definition absent for TryGet.
func (d *Definition) IsOptional() bool { return d.optional }

// Phase returns the phase used when the instance does not implement Phased.
func (d *Definition) Phase() int { return d.phase }

// Type returns the type tag, or nil when none was recorded.
func (d *Definition) Type() reflect.Type { return d.typ }

// Dependencies returns a copy of the declared dependency names.
func (d *Definition) Dependencies() []string {
	out := make([]string, len(d.dependencies))
	copy(out, d.dependencies)
	return out
}

func (d *Definition) validate() error {
	switch {
	case d.name == "":
		return &InvalidDefinitionError{Name: d.name, Reason: "empty name"}
	case d.factory == nil:
		return &InvalidDefinitionError{Name: d.name, Reason: "nil factory"}
	case !d.scope.valid():
		return &InvalidDefinitionError{Name: d.name, Reason: "unknown scope " + string(d.scope)}
	case d.eager && d.scope != ScopeSingleton:
		return &InvalidDefinitionError{Name: d.name, Reason: "only singletons can be eager"}
	}
	for _, dep := range d.dependencies {
		if dep == d.name {
			return &InvalidDefinitionError{Name: d.name, Reason: "depends on itself"}
		}
	}
	return nil
}

// conditionsHold evaluates conditions in order and returns the index of the first
// failing one, or -1.
func (d *Definition) conditionsHold(c *ApplicationContext) int {
	for i, cond := range d.conditions {
		if cond != nil && !cond(c) {
			return i
		}
	}
	return -1
}

// DefinitionInfo is a serializable snapshot of a Definition.
type DefinitionInfo struct {
	Name         string   `json:"name"`
	Scope        Scope    `json:"scope"`
	Source       string   `json:"source,omitempty"`
	Type         string   `json:"type,omitempty"`
	Eager        bool     `json:"eager"`
	Optional     bool     `json:"optional"`
	Conditions   int      `json:"conditions"`
	Dependencies []string `json:"dependencies,omitempty"`
	Phase        int      `json:"phase"`
}

// Info returns a snapshot suitable for logging and JSON encoding.
func (d *Definition) Info() DefinitionInfo {
	info := DefinitionInfo{
		Name:         d.name,
		Scope:        d.scope,
		Source:       d.source,
		Eager:        d.eager,
		Optional:     d.optional,
		Conditions:   len(d.conditions),
		Dependencies: d.Dependencies(),
		Phase:        d.phase,
	}
	if d.typ != nil {
		info.Type = d.typ.String()
	}
	return info
}
