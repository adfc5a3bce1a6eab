package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/srcmirror/pkg/hooks"
)

// NewHooksCmd creates the hooks command.
func NewHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Work with hook scripts",
	}

	cmd.AddCommand(newHooksListCmd())
	cmd.AddCommand(newHooksTemplateCmd())

	return cmd
}

func newHooksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the hook scripts a sync would run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := loadHookManager(cfg, nil)
			if err != nil {
				return err
			}
			return printHooks(cmd, manager.Hooks())
		},
	}
}

func printHooks(cmd *cobra.Command, registered []hooks.Hook) error {
	out := cmd.OutOrStdout()
	if len(registered) == 0 {
		_, _ = fmt.Fprintln(out, "No hooks configured.")
		return nil
	}

	tabWriter := tabwriter.NewWriter(out, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "HOOK\tSCRIPT")
	for _, h := range registered {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", h.Type, h.Source)
	}
	return tabWriter.Flush()
}

func newHooksTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "template TYPE",
		Short:     "Print a starter script for a hook type",
		Long:      "Print a commented Tengo script for post-extract or post-sync",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(hooks.PostExtract), string(hooks.PostSync)},
		RunE: func(cmd *cobra.Command, args []string) error {
			hookType := hooks.HookType(args[0])
			if !hookType.Valid() {
				return hooks.ErrUnsupportedHookType(args[0])
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), hooks.HookTemplate(hookType))
			return err
		},
	}

	return cmd
}
