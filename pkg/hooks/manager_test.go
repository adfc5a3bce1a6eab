package hooks_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/srcmirror/pkg/hooks"
)

func TestNewHookManager(t *testing.T) {
	manager := hooks.NewHookManager()
	assert.NotNil(t, manager, "NewHookManager should return a non-nil manager")
}

func TestAddAndExecuteHook(t *testing.T) {
	manager := hooks.NewHookManager()
	ctx := hooks.HookContext{
		PackageName: "foo",
		Vars: map[string]interface{}{
			"testVar": "testValue",
		},
	}

	tests := []struct {
		name          string
		hook          hooks.Hook
		expectedError string
	}{
		{
			name: "valid hook",
			hook: hooks.Hook{
				Type:    hooks.PostExtract,
				Content: `// Simple hook that doesn't return anything`,
			},
		},
		{
			name: "empty hook type",
			hook: hooks.Hook{
				Type:    "",
				Content: "test content",
			},
			expectedError: hooks.ErrHookTypeEmpty.Error(),
		},
		{
			name: "unsupported hook type",
			hook: hooks.Hook{
				Type:    "pre-install",
				Content: "test content",
			},
			expectedError: "unsupported hook type: pre-install",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			err := manager.AddHook(testCase.hook)
			if testCase.expectedError != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", testCase.expectedError)
				}
				if !strings.Contains(err.Error(), testCase.expectedError) {
					t.Fatalf("expected error to contain %q, got %v", testCase.expectedError, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	err := manager.Execute(hooks.PostExtract, ctx)
	require.NoError(t, err, "Execute should not return an error for a valid hook")

	assert.NoError(t, manager.Execute(hooks.PostSync, ctx), "missing hooks are skipped")
}

func TestRemoveHook(t *testing.T) {
	manager := hooks.NewHookManager()

	err := manager.AddHook(hooks.Hook{Type: hooks.PostExtract, Content: `// Test hook`})
	require.NoError(t, err)
	assert.True(t, manager.HasHook(hooks.PostExtract))

	require.NoError(t, manager.RemoveHook(hooks.PostExtract))
	assert.False(t, manager.HasHook(hooks.PostExtract), "Should not have a hook after removal")

	assert.ErrorIs(t, manager.RemoveHook(""), hooks.ErrHookTypeEmpty)
	assert.NoError(t, manager.RemoveHook(hooks.PostSync), "removing an absent hook is a no-op")
}

func TestHooks_ListsSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.tengo")
	require.NoError(t, os.WriteFile(path, []byte(`// sync`), 0o644))

	manager := hooks.NewHookManager()
	assert.Empty(t, manager.Hooks())

	require.NoError(t, hooks.LoadHookFile(manager, hooks.PostSync, path))
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PostExtract, Content: `// inline`}))

	assert.Equal(t, []hooks.Hook{
		{Type: hooks.PostExtract},
		{Type: hooks.PostSync, Source: path},
	}, manager.Hooks())

	require.NoError(t, manager.RemoveHook(hooks.PostSync))
	assert.Equal(t, []hooks.Hook{{Type: hooks.PostExtract}}, manager.Hooks())
}

func TestExecute_DoesNotShareVars(t *testing.T) {
	manager := hooks.NewHookManager()
	require.NoError(t, manager.AddHook(hooks.Hook{Type: hooks.PostSync, Content: `x := extracted + 1`}))

	vars := map[string]interface{}{"extracted": 1}
	require.NoError(t, manager.Execute(hooks.PostSync, hooks.HookContext{Vars: vars}))
	assert.Equal(t, map[string]interface{}{"extracted": 1}, vars)
}

func TestLoadHookFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marker.tengo")
	require.NoError(t, os.WriteFile(path, []byte(`// marker`), 0o644))

	manager := hooks.NewHookManager()
	require.NoError(t, hooks.LoadHookFile(manager, hooks.PostExtract, path))
	assert.True(t, manager.HasHook(hooks.PostExtract))

	require.NoError(t, hooks.LoadHookFile(manager, hooks.PostSync, ""))
	assert.False(t, manager.HasHook(hooks.PostSync))

	err := hooks.LoadHookFile(manager, hooks.PostSync, filepath.Join(dir, "missing.tengo"))
	assert.ErrorIs(t, err, hooks.ErrHookLoad)

	err = hooks.LoadHookFile(manager, hooks.HookType("pre-install"), path)
	assert.ErrorIs(t, err, hooks.ErrHookLoad)
}

func TestLoadHooksFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post-extract.tengo"), []byte(`x := 1`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pre-install.tengo"), []byte(`x := 1`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte(`docs`), 0o644))

	manager := hooks.NewHookManager()
	require.NoError(t, hooks.LoadHooksFromDir(manager, dir))
	assert.True(t, manager.HasHook(hooks.PostExtract))
	assert.False(t, manager.HasHook(hooks.PostSync))

	require.NoError(t, hooks.LoadHooksFromDir(manager, filepath.Join(dir, "missing")))
}

func TestHookTemplate(t *testing.T) {
	tests := []struct {
		name     string
		hookType hooks.HookType
		expected string
	}{
		{"PostExtract", hooks.PostExtract, "Post-extract hook"},
		{"PostSync", hooks.PostSync, "Post-sync hook"},
		{"Unknown", hooks.HookType("unknown"), "Unknown hook type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			template := hooks.HookTemplate(tc.hookType)
			assert.Contains(t, template, tc.expected, "Template should contain expected content")
		})
	}
}
