package main

import (
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"denoisefx/internal/gui"
	"denoisefx/internal/source"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show filtered frames in a window with live provider controls",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, flags)

			s, err := ctx.buildStack(true)
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

			inst, err := s.factory.Create("preview", src, filterSettings)
			if err != nil {
				return err
			}
			s.shutdown.Register("filter", inst)

			fyneApp := app.NewWithID(gui.AppID)

			preview := gui.NewPreview(fyneApp, gui.Options{
				Instance: inst,
				Settings: filterSettings,
				Source:   src,
				Alloc:    s.mem,
				FPS:      cfg.Render.FPS,
				Log:      log,
			})
			preview.Run(s.shutdown.Context(), fyneApp)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.provider, "provider", "p", "", "Initial provider: auto, cuda, nlmeans or a number")
	f.IntVar(&flags.fps, "fps", 0, "Render rate in frames per second")
	f.StringVarP(&flags.sourcePath, "source", "s", "", "Image, video file or camera index")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	return cmd
}
