// Command shapes inspects the shapes compiled from WIT type expressions.
//
//	shapes describe 'record point { x: s32, y: s32 }'
//	shapes zero 'list<option<string>>'
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/shape-runtime/partial"
	"github.com/wippyai/shape-runtime/shape"
)

type globalFlags struct {
	configPath string
	color      string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var gf globalFlags
	root := &cobra.Command{
		Use:           "shapes",
		Short:         "Inspect runtime shapes of WIT types",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !gf.verbose {
				return nil
			}
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			shape.SetLogger(l.Named("shape"))
			partial.SetLogger(l.Named("partial"))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "path to a TOML config file")
	root.PersistentFlags().StringVar(&gf.color, "color", "", "color mode: auto, always or never")
	root.PersistentFlags().BoolVarP(&gf.verbose, "verbose", "v", false, "log shape derivation and builder events")

	root.AddCommand(newDescribeCmd(&gf), newZeroCmd(&gf))
	return root
}

// loadFor resolves the effective config for cmd: the file named by --config,
// then flag overrides.
func loadFor(cmd *cobra.Command, gf *globalFlags) (Config, error) {
	cfg, err := LoadConfig(gf.configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("color") {
		cfg.Color = gf.color
	}
	return cfg, cfg.Validate()
}
