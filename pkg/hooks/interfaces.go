package hooks

// HookManager holds the hook scripts of a run, at most one per HookType.
type HookManager interface {
	// Execute runs the hook registered for hookType, if any.
	Execute(hookType HookType, ctx HookContext) error

	// AddHook registers hook, replacing an earlier one of the same type.
	AddHook(hook Hook) error

	// RemoveHook drops the hook of hookType.
	RemoveHook(hookType HookType) error

	// HasHook reports whether a hook of hookType is registered.
	HasHook(hookType HookType) bool
}
