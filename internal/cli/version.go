package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/jian-li1/reddit-llm/internal/model"
	"github.com/jian-li1/reddit-llm/internal/prompt"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build features",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := version
			if bi, ok := debug.ReadBuildInfo(); ok && v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
				v = bi.Main.Version
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "chatbot %s\n", v)
			fmt.Fprintf(out, "  llama runtime: %v\n", model.LlamaBuilt())
			fmt.Fprintf(out, "  templates:     %v\n", prompt.Names())
			return nil
		},
	}
}
