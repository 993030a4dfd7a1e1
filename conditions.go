package ioc

import "os"

// IfDefined holds when name is registered and resolvable.
func IfDefined(name string) Condition {
	return func(c *ApplicationContext) bool { return c.Has(name) }
}

// IfMissing holds when name is not registered or excluded by its own conditions.
func IfMissing(name string) Condition {
	return func(c *ApplicationContext) bool { return !c.Has(name) }
}

// IfEnv holds when the environment variable key equals want. An empty want only
// requires the variable to be set.
func IfEnv(key, want string) Condition {
	return func(*ApplicationContext) bool {
		got, ok := os.LookupEnv(key)
		if !ok {
			return false
		}
		return want == "" || got == want
	}
}

// Not negates cond.
func Not(cond Condition) Condition {
	return func(c *ApplicationContext) bool { return !cond(c) }
}

// All holds when every condition holds.
func All(conds ...Condition) Condition {
	return func(c *ApplicationContext) bool {
		for _, cond := range conds {
			if !cond(c) {
				return false
			}
		}
		return true
	}
}

// AnyOf holds when at least one condition holds.
func AnyOf(conds ...Condition) Condition {
	return func(c *ApplicationContext) bool {
		for _, cond := range conds {
			if cond(c) {
				return true
			}
		}
		return false
	}
}
