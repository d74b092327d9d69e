package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mdlive/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage mdlive configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .mdlive.yml to the working directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteDefault(config.DefaultConfigFile); err != nil {
			return err
		}
		fmt.Println("Wrote", config.DefaultConfigFile)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
