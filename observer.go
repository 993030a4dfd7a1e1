package ioc

import "time"

// Observer receives container events. Implementations must be safe for concurrent use
// and must not call back into the container.
type Observer interface {
	// Resolved is called after every Get, successful or not.
	Resolved(name string, scope Scope, elapsed time.Duration, err error)
	// Created is called after a factory produced a new instance and post-construct ran.
	Created(name string, scope Scope, elapsed time.Duration)
	HookFailed(name, hook string, phase int, err error)
	RequestEntered(id string)
	RequestExited(id string, instances int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Resolved(string, Scope, time.Duration, error) {}
func (NopObserver) Created(string, Scope, time.Duration)         {}
func (NopObserver) HookFailed(string, string, int, error)        {}
func (NopObserver) RequestEntered(string)                        {}
func (NopObserver) RequestExited(string, int)                    {}
