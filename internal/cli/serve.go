package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/engine"
	"github.com/tartampluch/go-svcrecords/internal/server"
	"github.com/tartampluch/go-svcrecords/internal/store"
	"github.com/tartampluch/go-svcrecords/internal/watch"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	port   string
	phones []string
}

func (a *App) serveCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish follow-up dates as an iCalendar feed on localhost",
		Long: `Serve an iCalendar feed with the next water-filter replacement and the
warranty end of every tracked customer. Subscribe to
http://127.0.0.1:<port>/followups.ics from any calendar client.

Tracked phones come from --phone or the "phones" list of the settings file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.port, config.FlagPort, "", config.FlagDescPort)
	f.StringSliceVar(&opts.phones, config.FlagPhone, nil, config.FlagDescPhone)
	return cmd
}

func (a *App) runServe(cmd *cobra.Command, opts *serveOptions) error {
	port := a.settings.ServerPort
	if opts.port != "" {
		port = opts.port
	}
	if err := config.ValidatePort(port); err != nil {
		return err
	}
	phones := a.settings.Phones
	if len(opts.phones) > 0 {
		phones = opts.phones
	}

	src, err := a.source()
	if err != nil {
		return err
	}

	log := slog.With(config.LogKeyComponent, config.CompCLI, config.LogKeyOp, "serve")

	st, err := a.openStore()
	if err != nil {
		log.Warn(config.MsgStoreSkipped, config.LogKeyError, err)
	} else {
		defer func() { _ = st.Close() }()
		src = &store.CachingSource{Source: src, Store: st, Now: a.now}
		// Without configured phones, track every customer already in the cache.
		if len(phones) == 0 {
			if phones, err = st.Phones(cmd.Context()); err != nil {
				return err
			}
		}
	}
	log.Info(config.MsgServeTracking, config.LogKeyCount, len(phones))

	g, ctx := errgroup.WithContext(cmd.Context())

	var trigger <-chan struct{}
	if a.settings.SourceMode == config.SourceModeLocal {
		w, err := watch.New(ctx, a.settings.LocalPath)
		if err != nil {
			return err
		}
		trigger = w.Changes()
	}

	srv := server.New(port)
	worker := &engine.Worker{
		Generator: &engine.FeedGenerator{
			Source:        src,
			Clock:         a.clock(),
			FormatSummary: a.summaryFormatter(),
		},
		Sink:     srv,
		Phones:   phones,
		Interval: time.Duration(a.settings.RefreshMin) * time.Minute,
		Trigger:  trigger,
	}

	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return worker.Run(ctx) })
	err = g.Wait()
	log.Info(config.MsgServeStopped, config.LogKeyEvents, srv.Events())
	return err
}

// summaryFormatter localizes event titles.
func (a *App) summaryFormatter() func(kind, name string) string {
	keys := map[string]string{
		config.EventKindReplace:  config.TKeyEvtReplace,
		config.EventKindWarranty: config.TKeyEvtWarranty,
	}
	return func(kind, name string) string {
		return a.tr.Format(keys[kind], map[string]any{"Name": name})
	}
}
