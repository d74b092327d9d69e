// Package cmd provides the command-line interface for mdlive.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--port, --host, --interval, ...)
//  2. MDLIVE_* environment variables (MDLIVE_SERVER_PORT, ...)
//  3. Configuration file (.mdlive.yml in the working directory, or the
//     path given via --config)
//  4. Built-in defaults
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mdlive/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
// Given a file argument it behaves like `mdlive serve`.
var rootCmd = &cobra.Command{
	Use:   "mdlive [file.md]",
	Short: "Live-preview a markdown file in the browser",
	Long: `mdlive serves a single markdown file with live reload: it polls the
file for changes, renders it to HTML, and pushes every update to all
connected browser tabs over a websocket.

Quick Start:
  mdlive README.md                Serve README.md on http://127.0.0.1:8080
  mdlive serve notes.md -p 3000   Serve on a different port
  mdlive config init              Write a default .mdlive.yml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runServe(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .mdlive.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	addServeFlags(rootCmd)
}

// initConfig initializes viper with defaults, the config file, and
// MDLIVE_-prefixed environment variables.
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mdlive")
	}

	viper.SetEnvPrefix("MDLIVE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults and environment apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
