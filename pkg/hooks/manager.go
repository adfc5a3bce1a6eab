package hooks

import (
	"sync"

	"github.com/glorpus-work/srcmirror/pkg/logger"
)

// DefaultHookManager runs hooks through a TengoExecutor and remembers the
// file each one was loaded from.
type DefaultHookManager struct {
	executor *TengoExecutor
	mutex    sync.RWMutex
	sources  map[HookType]string
}

// NewHookManager creates a manager without any hooks.
func NewHookManager() *DefaultHookManager {
	return &DefaultHookManager{
		executor: NewTengoExecutor(),
		sources:  make(map[HookType]string),
	}
}

// Execute runs the hook of hookType. Types without a hook are a no-op.
func (m *DefaultHookManager) Execute(hookType HookType, ctx HookContext) error {
	if !m.HasHook(hookType) {
		return nil
	}

	// scripts get their own Vars map
	ctxCopy := ctx
	ctxCopy.Vars = make(map[string]interface{}, len(ctx.Vars))
	for k, v := range ctx.Vars {
		ctxCopy.Vars[k] = v
	}

	logger.Debug("Running hook", logger.Fields{"hook": string(hookType), "package": ctx.PackageName})
	return m.executor.Execute(hookType, ctxCopy)
}

// AddHook registers hook, replacing any earlier hook of the same type.
func (m *DefaultHookManager) AddHook(hook Hook) error {
	if hook.Type == "" {
		return ErrHookTypeEmpty
	}
	if !hook.Type.Valid() {
		return ErrUnsupportedHookType(string(hook.Type))
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.AddScript(hook.Type, hook.Content)
	m.sources[hook.Type] = hook.Source
	return nil
}

// RemoveHook drops the hook of hookType. Removing a type without a hook is
// not an error.
func (m *DefaultHookManager) RemoveHook(hookType HookType) error {
	if hookType == "" {
		return ErrHookTypeEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.RemoveScript(hookType)
	delete(m.sources, hookType)
	return nil
}

// HasHook reports whether a hook of hookType is registered.
func (m *DefaultHookManager) HasHook(hookType HookType) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.executor.HasScript(hookType)
}

// Hooks lists the registered hooks in run order, without their content.
func (m *DefaultHookManager) Hooks() []Hook {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var out []Hook
	for _, t := range Types() {
		if m.executor.HasScript(t) {
			out = append(out, Hook{Type: t, Source: m.sources[t]})
		}
	}
	return out
}
