// Package cli wires the codeindex command-line surface: index, refresh,
// rebuild, status, search, and serve-mcp, each a thin cobra command over
// internal/config and internal/indexmgr. Grounded on the teacher's
// internal/cli/root.go command-tree shape (persistent flags bound to
// viper, cobra.OnInitialize for config discovery).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when codeindex is called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "codeindex",
	Short: "Incremental, multi-granular hybrid code search",
	Long: `codeindex indexes a workspace's source code at symbol, chunk, and file
granularity and serves hybrid (lexical + vector) search over the result,
either directly or through an MCP server for LLM coding assistants.`,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <workspace>/.codeindex/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig lets viper-level global flags (config/verbose) be read before
// internal/config.LoadConfigFromDir does its own, independent, workspace-
// rooted load for each command.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}
