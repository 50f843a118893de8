// Package cli holds the devstack cobra commands. Commands load an explicit
// config.Config and never read viper directly.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "devstack",
	Short: "Provision local backing services for an application",
	Long: `devstack provisions the backing services an application needs
(cache, search, object storage, queue, database) as containers in the
application's docker-compose.yml, or guides you through a local install
when containers are not an option.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("engine", "", "Container engine (docker|podman)")
	flags.String("compose-file", "", "Manifest file name inside the app directory")
	flags.Bool("non-interactive", false, "Never prompt; accept defaults")
	flags.Bool("validate-local", false, "Check that developer-run services are reachable")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.String("log-format", "", "Log format (text|json)")

	// Bind flags to viper
	for _, name := range []string{"engine", "compose-file", "non-interactive", "validate-local", "log-level", "log-format"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}

	rootCmd.AddCommand(
		initCmd,
		provisionCmd,
		guidanceCmd,
		servicesCmd,
		doctorCmd,
		manifestCmd,
		upCmd,
		downCmd,
		statusCmd,
		configCmd,
		versionCmd,
	)
}
