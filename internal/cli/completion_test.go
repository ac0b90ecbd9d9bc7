package cli

import (
	"bytes"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func TestCompleteValues(t *testing.T) {
	complete := completeValues(pageSizeValues)
	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"A4", "LETTER"}},
		{"l", []string{"LETTER"}},
		{"a", []string{"A4"}},
		{"x", nil},
	}
	for _, tt := range tests {
		got, directive := complete(nil, nil, tt.prefix)
		if !slices.Equal(got, tt.want) {
			t.Errorf("complete(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
		if directive != cobra.ShellCompDirectiveNoFileComp {
			t.Errorf("complete(%q) directive = %v, want NoFileComp", tt.prefix, directive)
		}
	}
}

func TestCompleteFormats(t *testing.T) {
	tests := []struct {
		prefix string
		want   []string
	}{
		{"", []string{"json", "pdf", "png", "svg"}},
		{"p", []string{"pdf", "png"}},
		{"svg,", []string{"svg,json", "svg,pdf", "svg,png"}},
		{"svg,p", []string{"svg,pdf", "svg,png"}},
		{"svg,pdf,png,", []string{"svg,pdf,png,json"}},
	}
	for _, tt := range tests {
		got, _ := completeFormats(nil, nil, tt.prefix)
		if !slices.Equal(got, tt.want) {
			t.Errorf("completeFormats(%q) = %v, want %v", tt.prefix, got, tt.want)
		}
	}
}

func TestFlagCompletionRegistered(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"layout", "--page-size", ""}, "LETTER"},
		{[]string{"report", "list", "--status", "val"}, "validation_failed"},
		{[]string{"report", "regenerate", "id", "--style", "c"}, "calm"},
		{[]string{"render", "x.json", "--format", "svg,"}, "svg,pdf"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		root := New(io.Discard, log.InfoLevel).RootCommand()
		root.SetOut(&out)
		root.SetErr(io.Discard)
		root.SetArgs(append([]string{cobra.ShellCompRequestCmd}, tt.args...))
		if err := root.Execute(); err != nil {
			t.Fatalf("%v: %v", tt.args, err)
		}
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("completion for %v = %q, want %q", tt.args, out.String(), tt.want)
		}
	}
}

func TestCompletionScripts(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		var out bytes.Buffer
		root := New(io.Discard, log.InfoLevel).RootCommand()
		root.SetOut(&out)
		root.SetArgs([]string{"completion", shell})
		if err := root.Execute(); err != nil {
			t.Fatalf("completion %s: %v", shell, err)
		}
		if !strings.Contains(out.String(), "reportflow") {
			t.Errorf("completion %s script does not mention reportflow", shell)
		}
	}
}
