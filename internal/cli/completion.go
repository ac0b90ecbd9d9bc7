package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/reportflow/pkg/core/layout"
	"github.com/matzehuels/reportflow/pkg/core/layout/flow"
	"github.com/matzehuels/reportflow/pkg/pipeline"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for reportflow.

Completions cover commands and the values of --page-size, --intent, --style,
--format and --status.

Bash:
  $ source <(reportflow completion bash)
  $ reportflow completion bash > /etc/bash_completion.d/reportflow

Zsh:
  $ reportflow completion zsh > "${fpath[1]}/_reportflow"

Fish:
  $ reportflow completion fish > ~/.config/fish/completions/reportflow.fish

PowerShell:
  PS> reportflow completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

type completionFunc = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// Value lists offered for flag completion.
func pageSizeValues() []string {
	var out []string
	for _, k := range layout.PageSizeKeys() {
		out = append(out, string(k))
	}
	return out
}

func intentValues() []string {
	return []string{string(flow.IntentExport), string(flow.IntentPreview)}
}

func styleValues() []string {
	var out []string
	for _, p := range layout.PresetNames() {
		out = append(out, string(p))
	}
	return out
}

func formatValues() []string {
	out := make([]string, 0, len(pipeline.ValidFormats))
	for f := range pipeline.ValidFormats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

func statusValues() []string {
	return []string{string(pipeline.StatusDraft), string(pipeline.StatusReady), string(pipeline.StatusValidationFailed)}
}

// completeValues completes a flag from a fixed list, matching
// case-insensitively since page sizes are upper case.
func completeValues(values func() []string) completionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values() {
			if strings.HasPrefix(strings.ToLower(v), strings.ToLower(toComplete)) {
				out = append(out, v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeFormats completes a comma-separated format list, one element at
// a time.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done, partial := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done, partial = toComplete[:i+1], toComplete[i+1:]
	}
	taken := parseFormats(done)
	var out []string
	for _, f := range formatValues() {
		if strings.HasPrefix(f, strings.ToLower(partial)) && (done == "" || !slices.Contains(taken, f)) {
			out = append(out, done+f)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// registerCompletions attaches value completion to whichever of the known
// flags cmd and its subcommands define.
func registerCompletions(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		registerCompletions(sub)
	}
	fns := map[string]completionFunc{
		"page-size": completeValues(pageSizeValues),
		"intent":    completeValues(intentValues),
		"style":     completeValues(styleValues),
		"status":    completeValues(statusValues),
		"format":    completeFormats,
	}
	for name, fn := range fns {
		if cmd.Flags().Lookup(name) != nil {
			_ = cmd.RegisterFlagCompletionFunc(name, fn)
		}
	}
}
