package ioc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable category of a container error.
type ErrorKind string

const (
	KindRegistryFrozen       ErrorKind = "RegistryFrozen"
	KindDuplicateDefinition  ErrorKind = "DuplicateDefinition"
	KindInvalidDefinition    ErrorKind = "InvalidDefinition"
	KindDependencyNotFound   ErrorKind = "DependencyNotFound"
	KindCircularDependency   ErrorKind = "CircularDependency"
	KindScopeNotActive       ErrorKind = "ScopeNotActive"
	KindNestedRequestContext ErrorKind = "NestedRequestContext"
	KindConditionNotMet      ErrorKind = "ConditionNotMet"
	KindCreation             ErrorKind = "Creation"
	KindLifecycle            ErrorKind = "Lifecycle"
	KindAlreadyRefreshed     ErrorKind = "AlreadyRefreshed"
	KindTypeMismatch         ErrorKind = "TypeMismatch"
	KindShutdown             ErrorKind = "Shutdown"
	KindRequestContextExited ErrorKind = "RequestContextExited"
)

// Error is implemented by every error raised by the container.
type Error interface {
	error
	Kind() ErrorKind
	Names() []string
}

// KindOf returns the kind of the first container error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

// RegistryFrozenError is returned by Register after Refresh.
type RegistryFrozenError struct {
	Name string
}

func (e *RegistryFrozenError) Error() string {
	return fmt.Sprintf("cannot register %q: registry is frozen", e.Name)
}

func (e *RegistryFrozenError) Kind() ErrorKind { return KindRegistryFrozen }
func (e *RegistryFrozenError) Names() []string { return []string{e.Name} }

// DuplicateDefinitionError represents a second registration under the same name.
type DuplicateDefinitionError struct {
	Name           string
	ExistingSource string
}

func (e *DuplicateDefinitionError) Error() string {
	if e.ExistingSource != "" {
		return fmt.Sprintf("definition %q already registered (from %s)", e.Name, e.ExistingSource)
	}
	return fmt.Sprintf("definition %q already registered", e.Name)
}

func (e *DuplicateDefinitionError) Kind() ErrorKind { return KindDuplicateDefinition }
func (e *DuplicateDefinitionError) Names() []string { return []string{e.Name} }

// InvalidDefinitionError represents a definition that cannot be registered.
type InvalidDefinitionError struct {
	Name   string
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid definition %q: %s", e.Name, e.Reason)
}

func (e *InvalidDefinitionError) Kind() ErrorKind { return KindInvalidDefinition }
func (e *InvalidDefinitionError) Names() []string { return []string{e.Name} }

// DependencyNotFoundError represents a missing or condition-excluded definition.
// RequiredBy is the component under construction that asked for it, if any.
// ConditionFailed is set when the definition exists but its conditions do not hold.
type DependencyNotFoundError struct {
	Name            string
	RequiredBy      string
	ConditionFailed bool
}

func (e *DependencyNotFoundError) Error() string {
	msg := fmt.Sprintf("no definition found for %q", e.Name)
	if e.ConditionFailed {
		msg = fmt.Sprintf("definition %q excluded by its conditions", e.Name)
	}
	if e.RequiredBy != "" {
		msg += fmt.Sprintf(" (required by %q)", e.RequiredBy)
	}
	return msg
}

func (e *DependencyNotFoundError) Kind() ErrorKind { return KindDependencyNotFound }

func (e *DependencyNotFoundError) Names() []string {
	if e.RequiredBy != "" {
		return []string{e.Name, e.RequiredBy}
	}
	return []string{e.Name}
}

// CircularDependencyError represents a circular dependency detection error.
// Path starts and ends with the same name, e.g. [A B C A].
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CircularDependencyError) Kind() ErrorKind { return KindCircularDependency }

func (e *CircularDependencyError) Names() []string {
	out := make([]string, len(e.Path))
	copy(out, e.Path)
	return out
}

// ScopeNotActiveError represents a request-scoped resolution without an active request context.
type ScopeNotActiveError struct {
	Name  string
	Scope Scope
	// Owner is set when the resolution happened while building a singleton.
	Owner string
}

func (e *ScopeNotActiveError) Error() string {
	if e.Owner != "" {
		return fmt.Sprintf("%s scope not active for %q: resolved while constructing singleton %q", e.Scope, e.Name, e.Owner)
	}
	return fmt.Sprintf("%s scope not active for %q", e.Scope, e.Name)
}

func (e *ScopeNotActiveError) Kind() ErrorKind { return KindScopeNotActive }
func (e *ScopeNotActiveError) Names() []string { return []string{e.Name} }

// NestedRequestContextError is returned when entering a request context inside another one.
type NestedRequestContextError struct {
	ActiveID string
}

func (e *NestedRequestContextError) Error() string {
	return fmt.Sprintf("request context %s is already active", e.ActiveID)
}

func (e *NestedRequestContextError) Kind() ErrorKind { return KindNestedRequestContext }
func (e *NestedRequestContextError) Names() []string { return nil }

// RequestContextExitedError is returned when resolving through a request context that was exited.
type RequestContextExitedError struct {
	ID   string
	Name string
}

func (e *RequestContextExitedError) Error() string {
	return fmt.Sprintf("request context %s already exited (resolving %q)", e.ID, e.Name)
}

func (e *RequestContextExitedError) Kind() ErrorKind { return KindRequestContextExited }
func (e *RequestContextExitedError) Names() []string { return []string{e.Name} }

// ConditionNotMetError represents a definition whose conditions evaluated false.
type ConditionNotMetError struct {
	Name  string
	Index int
}

func (e *ConditionNotMetError) Error() string {
	return fmt.Sprintf("condition %d not met for %q", e.Index, e.Name)
}

func (e *ConditionNotMetError) Kind() ErrorKind { return KindConditionNotMet }
func (e *ConditionNotMetError) Names() []string { return []string{e.Name} }

// CreationError represents a factory failure.
type CreationError struct {
	Name string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("creation failed for %q: %v", e.Name, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

func (e *CreationError) Kind() ErrorKind { return KindCreation }
func (e *CreationError) Names() []string { return []string{e.Name} }

// LifecycleError represents a lifecycle hook failure.
type LifecycleError struct {
	Name  string
	Phase int
	Hook  string
	Err   error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s hook failed for %q (phase %d): %v", e.Hook, e.Name, e.Phase, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

func (e *LifecycleError) Kind() ErrorKind { return KindLifecycle }
func (e *LifecycleError) Names() []string { return []string{e.Name} }

// AlreadyRefreshedError is returned by a second Refresh call.
type AlreadyRefreshedError struct{}

func (e *AlreadyRefreshedError) Error() string {
	return "application context already refreshed"
}

func (e *AlreadyRefreshedError) Kind() ErrorKind { return KindAlreadyRefreshed }
func (e *AlreadyRefreshedError) Names() []string { return nil }

// TypeMismatchError represents a type assertion failure.
type TypeMismatchError struct {
	Name     string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %q: expected %s, got %s", e.Name, e.Expected, e.Got)
}

func (e *TypeMismatchError) Kind() ErrorKind { return KindTypeMismatch }
func (e *TypeMismatchError) Names() []string { return []string{e.Name} }

// ShutdownError aggregates the hook failures collected during a best-effort stop.
type ShutdownError struct {
	Errors []error
}

func (e *ShutdownError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("shutdown finished with %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ShutdownError) Unwrap() []error {
	return e.Errors
}

func (e *ShutdownError) Kind() ErrorKind { return KindShutdown }

func (e *ShutdownError) Names() []string {
	var names []string
	for _, err := range e.Errors {
		var ce Error
		if errors.As(err, &ce) {
			names = append(names, ce.Names()...)
		}
	}
	return names
}

// isAbsent reports whether err is one of the kinds TryGet converts to an absent result.
// Only the top-level error counts: a factory that failed because one of its own
// dependencies is missing is a creation failure, not an absent component.
func isAbsent(err error) bool {
	switch err.(type) {
	case *DependencyNotFoundError, *ConditionNotMetError:
		return true
	}
	return false
}
