package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "manifold",
	Short: "Managed software update checker",
	Long: `Manifold decides what a managed machine should install, update, and remove.

It reads the client's manifest and the repository catalogs, resolves every
item's requirements, fetches and verifies installer items, and writes the
resulting InstallInfo for the install stage to act on.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .manifold.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("managed-installs-dir", "", "managed installs directory")
	rootCmd.PersistentFlags().String("repo-url", "", "software repository URL or path")
	rootCmd.PersistentFlags().String("id", "", "client identifier (manifest name)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("managed_installs_dir", rootCmd.PersistentFlags().Lookup("managed-installs-dir"))
	_ = viper.BindPFlag("repo_url", rootCmd.PersistentFlags().Lookup("repo-url"))
	_ = viper.BindPFlag("client_identifier", rootCmd.PersistentFlags().Lookup("id"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".manifold")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("MANIFOLD")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
