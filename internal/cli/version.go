package cli

import (
	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/zelaser/hoapi-go/pkg/hoapi"
)

// ConfigFormatVersion is written into new config files.
const ConfigFormatVersion = "0.1.0"

// configVersionConstraint accepts any 0.1.x config file.
var configVersionConstraint *semver.Constraints

func init() {
	var err error
	configVersionConstraint, err = semver.NewConstraint("^" + ConfigFormatVersion)
	if err != nil {
		panic(err)
	}
}

// IsConfigVersionCompatible reports whether a config file written with the
// given format version can be read. Invalid version strings are rejected.
func IsConfigVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return configVersionConstraint.Check(v)
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v" + hoapi.Version
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hoctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := resolveConfigPath()
			if err != nil {
				configPath = "unknown"
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version":        getCLIVersion(),
					"sdk_user_agent": hoapi.DefaultUserAgent,
					"config_format":  ConfigFormatVersion,
					"config_file":    configPath,
				})
			}
			cmd.Printf("hoctl %s (%s)\n", getCLIVersion(), hoapi.DefaultUserAgent)
			cmd.Printf("Config file: %s\n", configPath)
			return nil
		},
	}
}
