package ioc_test

import (
	"errors"
	"fmt"
	"testing"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		kind  ioc.ErrorKind
		names []string
	}{
		{"frozen", &ioc.RegistryFrozenError{Name: "a"}, ioc.KindRegistryFrozen, []string{"a"}},
		{"not found", &ioc.DependencyNotFoundError{Name: "b", RequiredBy: "a"}, ioc.KindDependencyNotFound, []string{"b", "a"}},
		{"cycle", &ioc.CircularDependencyError{Path: []string{"a", "b", "a"}}, ioc.KindCircularDependency, []string{"a", "b", "a"}},
		{"wrapped creation", fmt.Errorf("boot: %w", &ioc.CreationError{Name: "a", Err: errors.New("x")}), ioc.KindCreation, []string{"a"}},
		{"nested request", &ioc.NestedRequestContextError{ActiveID: "r1"}, ioc.KindNestedRequestContext, nil},
		{"plain", errors.New("plain"), "", nil},
		{"nil", nil, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, ioc.KindOf(tt.err))
			var e ioc.Error
			if errors.As(tt.err, &e) {
				assert.Equal(t, tt.names, e.Names())
			}
		})
	}
}

func TestCreationErrorKeepsRootCause(t *testing.T) {
	root := &ioc.DependencyNotFoundError{Name: "db", RequiredBy: "repo"}
	err := &ioc.CreationError{Name: "service", Err: &ioc.CreationError{Name: "repo", Err: root}}

	var notFound *ioc.DependencyNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, "db", notFound.Name)
	assert.Equal(t,
		`creation failed for "service": creation failed for "repo": no definition found for "db" (required by "repo")`,
		err.Error())
}

func TestShutdownErrorUnwrapsEveryFailure(t *testing.T) {
	first := &ioc.LifecycleError{Name: "a", Hook: ioc.HookShutdown, Err: errors.New("boom")}
	second := &ioc.LifecycleError{Name: "b", Hook: ioc.HookPreDestroy, Err: errors.New("bang")}
	err := &ioc.ShutdownError{Errors: []error{first, second}}

	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, []string{"a", "b"}, err.Names())
	assert.Contains(t, err.Error(), "2 error(s)")
}
