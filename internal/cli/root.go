package cli

import (
	"fmt"
	"os"

	"github.com/juju/loggo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var logger = loggo.GetLogger("claimexpiry.cli")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "claimexpiry",
	Short: "Claimexpiry - inactivity-based land claim expiration",
	Long: `Claimexpiry walks every claim owner of a world at a configured pace and
deletes the top-level claims of owners who have been away for longer
than the protection window for the claim's area.

Owners who are online, hold enough claim blocks or carry a bypass
permission are never touched. Use 'claimexpiry report' to see what a
scan would expire before running one.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configureLogging()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Claimexpiry.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("claimexpiry v0.2.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.claimexpiry/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.claimexpiry")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match CLAIMEXPIRY_*
	viper.SetEnvPrefix("CLAIMEXPIRY")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureLogging sets the loggo levels for every claimexpiry logger
func configureLogging() error {
	levels := "<root>=WARNING;claimexpiry=INFO"
	if viper.GetBool("output.verbose") {
		levels = "<root>=DEBUG"
	}
	if err := loggo.ConfigureLoggers(levels); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	return nil
}
