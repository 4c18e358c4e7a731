package commands

import (
	"runtime"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// VersionInfo describes the build.
type VersionInfo struct {
	Version   string `json:"version"    yaml:"version"`
	Commit    string `json:"commit"     yaml:"commit"`
	Built     string `json:"built"      yaml:"built"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the restpipe CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := VersionInfo{
				Version:   version,
				Commit:    commit,
				Built:     date,
				GoVersion: runtime.Version(),
			}

			return writeOutput(cmd.OutOrStdout(), versionInfo, func(table *tablewriter.Table) error {
				table.Header("Property", "Value")
				_ = table.Append("Version", versionInfo.Version)
				_ = table.Append("Commit", versionInfo.Commit)
				_ = table.Append("Built", versionInfo.Built)
				_ = table.Append("Go", versionInfo.GoVersion)

				return nil
			})
		},
	}
}
