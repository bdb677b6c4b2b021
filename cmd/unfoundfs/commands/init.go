package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unfound-os/unfoundfs/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample unfoundfs configuration file.

By default the file is created at $XDG_CONFIG_HOME/unfoundfs/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  unfoundfs init

  # Initialize with custom path
  unfoundfs init --config /etc/unfoundfs/config.yaml

  # Force overwrite an existing config
  unfoundfs init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Explore the engine with: unfoundfs shell")
	fmt.Println("  3. Measure cache behavior with: unfoundfs bench")
	return nil
}
