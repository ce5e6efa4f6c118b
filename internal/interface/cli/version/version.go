package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deequery/internal/buildinfo"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version, build information, and runtime details",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "deequery version %s\n", buildinfo.GetVersion())
			fmt.Fprintf(w, "  Commit:        %s\n", buildinfo.GetCommit())
			fmt.Fprintf(w, "  Go version:    %s\n", runtime.Version())
			fmt.Fprintf(w, "  OS/Arch:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(w, "  Compiler:      %s\n", runtime.Compiler)
		},
	}
}
