package searchtools

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridable at link time with
// -ldflags "-X github.com/navicore/searchtools/cmd/searchtools.AppVersion=v1.2.3"
var (
	AppName       = "searchtools"
	AppVersion    = "dev"
	AppRepository = "https://github.com/navicore/searchtools"
	AppAuthor     = "navicore"
)

// GetVersion returns the name and version
func GetVersion() string {
	return fmt.Sprintf("%s %s", AppName, AppVersion)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\nRepository: %s\nAuthor: %s\nGo: %s\n",
				GetVersion(), AppRepository, AppAuthor, runtime.Version())
			return err
		},
	}
}
