package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"denoisefx/internal/config"
	"denoisefx/internal/filter"
	"denoisefx/internal/provider"
	"denoisefx/internal/runner"
	"denoisefx/internal/settings"
	"denoisefx/internal/sink"
	"denoisefx/internal/source"
)

type runFlags struct {
	provider         string
	switchTo         string
	switchAfter      int
	frames           int
	fps              int
	sourcePath       string
	outputDir        string
	format           string
	metricsAddr      string
	allowPassthrough bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render frames through the filter without a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)

			s, err := ctx.buildStack(flags.allowPassthrough)
			if err != nil {
				return err
			}
			log := ctx.logger()
			defer s.shutdown.Shutdown()
			s.shutdown.Listen()

			if cfg.Metrics.Enabled {
				s.serveMetrics(cfg.Metrics.Addr, log)
			}

			filterSettings, err := runSettings(cmd, cfg, flags)
			if err != nil {
				return err
			}

			src, err := source.Open(sourceOptions(cfg), log)
			if err != nil {
				return err
			}
			defer src.Close()

			inst, err := s.factory.Create("denoise", src, filterSettings)
			if err != nil {
				return err
			}
			s.shutdown.Register("filter", inst)

			counter := &sink.Counter{}
			out := sink.Tee{counter}
			if cfg.Output.Dir != "" {
				w, err := sink.NewWriter(cfg.Output.Dir, cfg.Output.Every, flags.format, log)
				if err != nil {
					return err
				}
				out = append(out, w)
			}

			var switches []runner.Switch
			if flags.switchTo != "" {
				id, err := parseProvider(flags.switchTo)
				if err != nil {
					return err
				}
				next := filterSettings.Snapshot()
				next.SetInt(filter.KeyProvider, int64(id))
				switches = append(switches, runner.Switch{AfterFrames: flags.switchAfter, Settings: next})
			}

			frames := runner.New(inst, out, runner.Options{
				FPS:      cfg.Render.FPS,
				Frames:   cfg.Render.Frames,
				Switches: switches,
				Log:      log,
			}).Run(s.shutdown.Context())

			draws, skips := counter.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "Frames: %d (processed %d, passed through %d), provider: %s\n",
				frames, draws, skips, inst.Loaded())

			st := s.mem.Stats()
			log.Debug("memory", "frame memory at exit", map[string]interface{}{
				"live":      st.Live,
				"idle":      st.Idle,
				"allocated": st.Allocated,
				"reused":    st.Reused,
			})
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.provider, "provider", "p", "", "Provider: auto, cuda, nlmeans or a number")
	f.StringVar(&flags.switchTo, "switch-to", "", "Switch to this provider while running")
	f.IntVar(&flags.switchAfter, "switch-after", 30, "Frames to render before --switch-to takes effect")
	f.IntVarP(&flags.frames, "frames", "n", 0, "Stop after this many frames (0 runs until interrupted)")
	f.IntVar(&flags.fps, "fps", 0, "Render rate in frames per second")
	f.StringVarP(&flags.sourcePath, "source", "s", "", "Image, video file or camera index")
	f.StringVarP(&flags.outputDir, "output", "o", "", "Directory to save frames into")
	f.StringVar(&flags.format, "format", "png", "Saved frame format: png or jpeg")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.BoolVar(&flags.allowPassthrough, "allow-passthrough", false, "Run even when no provider is usable")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	f := cmd.Flags()
	if f.Changed("frames") {
		cfg.Render.Frames = flags.frames
	}
	if f.Changed("fps") && flags.fps > 0 {
		cfg.Render.FPS = flags.fps
	}
	if f.Changed("source") {
		cfg.Source.Path = flags.sourcePath
	}
	if f.Changed("output") {
		cfg.Output.Dir = flags.outputDir
	}
	if f.Changed("metrics-addr") && flags.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = flags.metricsAddr
	}
}

// runSettings layers the --provider flag over the [filter] table.
func runSettings(cmd *cobra.Command, cfg *config.Config, flags runFlags) (*settings.Data, error) {
	s := cfg.FilterSettings()
	if cmd.Flags().Changed("provider") {
		id, err := parseProvider(flags.provider)
		if err != nil {
			return nil, err
		}
		s.SetInt(filter.KeyProvider, int64(id))
	}
	if !s.Has(filter.KeyProvider) {
		s.SetInt(filter.KeyProvider, int64(provider.Automatic))
	}
	return s, nil
}

func sourceOptions(cfg *config.Config) source.Options {
	return source.Options{
		Path:   cfg.Source.Path,
		Width:  cfg.Source.Width,
		Height: cfg.Source.Height,
		Noise:  cfg.Source.Noise,
	}
}
