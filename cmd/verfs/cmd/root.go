package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verfs/verfs/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "verfs",
	Short: "Content-addressed versioned file tree CLI",
	Long:  "CLI for storing file trees as content-addressed, versioned nodes and syncing them with OCI registries.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/verfs/config.yaml)")
	rootCmd.PersistentFlags().String("store-dir", "", "block store directory (default: ~/.local/share/verfs)")

	viper.BindPFlag("store_dir", rootCmd.PersistentFlags().Lookup("store-dir"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VERFS")
	viper.AutomaticEnv()
	viper.SetDefault("store_dir", defaultStoreDir())

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "verfs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "verfs")
	}
	return ".verfs"
}

func defaultStoreDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "verfs")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "verfs")
	}
	return ".verfs"
}

func openStore() (*store.DiskStore, error) {
	return store.Open(viper.GetString("store_dir"))
}
