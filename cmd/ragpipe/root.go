// Package ragpipe implements the command line interface.
package ragpipe

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragpipe/ragpipe/pkg/config"
	"github.com/ragpipe/ragpipe/pkg/log"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
	version = "dev"
)

var RootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Retrieval-augmented question answering over your documents",
	Long: `ragpipe ingests documents into a vector store and keyword index,
retrieves relevant chunks with dense, sparse, HyDE, or hybrid search,
optionally reranks them, and generates grounded answers with an
OpenAI-compatible LLM.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init and version run without an existing config
		if cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if debug {
			cfg.Debug = true
		}
		log.SetDebug(cfg.Debug)

		return nil
	},
}

func Execute() error {
	return RootCmd.Execute()
}

// SetVersion sets the version reported by the CLI.
func SetVersion(v string) {
	version = v
	RootCmd.Version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ragpipe version %s\n", version)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file path (default: ./ragpipe.toml or ~/.ragpipe/ragpipe.toml)")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	RootCmd.AddCommand(versionCmd)
}
