// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"vizmon/internal/config"
	"vizmon/pkg/build"
)

// Options is the parsed CLI result: the effective configuration plus the
// one-off command to run instead of the monitor, if any.
type Options struct {
	Config  *config.Config
	Command string // "" means run the monitor
}

// ParseArgs loads the YAML configuration and layers CLI flags on top of it.
// Flags only override what the user actually set.
func ParseArgs() (*Options, error) {
	buildInfo := build.Current()
	opts := &Options{}

	var (
		configPath string
		vizKind    string
		bands      int
		input      string
		server     string
		record     bool
		outputDir  string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio visualization monitor for squeezelite players",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("viz") {
				cfg.Viz.Kind = vizKind
			}
			if cmd.Flags().Changed("bands") {
				cfg.Viz.Bands = bands
			}
			if cmd.Flags().Changed("input") {
				cfg.Input = input
			}
			if cmd.Flags().Changed("server") {
				cfg.Player.Host = server
			}
			if cmd.Flags().Changed("record") {
				cfg.Recording.Enabled = record
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.Recording.OutputDir = outputDir
			}
			if verbose {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to a YAML config file. Default checks vizmon.yaml then config.yaml.")
	rootCmd.PersistentFlags().StringVarP(&vizKind, "viz", "z", config.DefaultKind,
		"Visualization kind: vu_mono, vu_stereo, peak_mono, peak_stereo, hist_mono, hist_stereo, vu_stereo_with_center_peak")
	rootCmd.PersistentFlags().IntVarP(&bands, "bands", "n", 0,
		"Spectrum band count for histogram kinds (0 = derive from display width)")
	rootCmd.PersistentFlags().StringVarP(&input, "input", "i", "shm",
		"Sample source: 'shm' for a squeezelite segment, 'live' for a capture device")
	rootCmd.PersistentFlags().StringVarP(&server, "server", "s", "",
		"Music server host for playback gating. Empty disables server polling.")
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Tap the analyzed audio to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", ".",
		"Directory for WAV recordings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return opts, nil
}
