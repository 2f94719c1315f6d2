package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/engine"
)

type addOptions struct {
	date     string
	name     string
	phone    string
	address  string
	purposes []string
	items    []string
	other    string
	cycle    string
	notes    string
}

func (a *App) addCommand() *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a new service record",
		Example: `  svcrecords add --name 王小明 --phone 0912345678 --address 台北市 \
    --purposes 安裝 --items 淨水設備,瓦斯爐具器具 --cycle 一年`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAdd(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.date, config.FlagDate, "", config.FlagDescDate)
	f.StringVar(&opts.name, config.FlagName, "", config.FlagDescName)
	f.StringVar(&opts.phone, config.FlagPhone, "", config.FlagDescPhone)
	f.StringVar(&opts.address, config.FlagAddress, "", config.FlagDescAddress)
	f.StringSliceVar(&opts.purposes, config.FlagPurposes, nil, config.FlagDescPurposes)
	f.StringSliceVar(&opts.items, config.FlagItems, nil, config.FlagDescItems)
	f.StringVar(&opts.other, config.FlagOther, "", config.FlagDescOther)
	f.StringVar(&opts.cycle, config.FlagCycle, "", config.FlagDescCycle)
	f.StringVar(&opts.notes, config.FlagNotes, "", config.FlagDescNotes)
	return cmd
}

func (a *App) runAdd(cmd *cobra.Command, opts *addOptions) error {
	purposes, err := parsePurposes(opts.purposes)
	if err != nil {
		return err
	}
	items, err := parseItems(opts.items)
	if err != nil {
		return err
	}
	cycle, err := parseCycle(opts.cycle)
	if err != nil {
		return err
	}

	rec, err := engine.NewRecord(engine.Submission{
		ServiceDate:   a.dateOrToday(opts.date),
		Name:          opts.name,
		Phone:         opts.phone,
		Address:       opts.address,
		Purposes:      purposes,
		Items:         items,
		OtherItemText: opts.other,
		Cycle:         cycle,
		Notes:         opts.notes,
	}, a.now())
	if err != nil {
		return err
	}

	res, err := a.poster().PostRecord(cmd.Context(), rec)
	if err != nil {
		return err
	}
	if res.NonJSON {
		a.println(a.tr.Msg(config.TKeyMsgAddedRaw))
	} else {
		a.println(a.tr.Msg(config.TKeyMsgAdded))
	}
	return nil
}

type replaceOptions struct {
	phone   string
	date    string
	cycle   string
	notes   string
	confirm bool
}

func (a *App) replaceCommand() *cobra.Command {
	opts := &replaceOptions{}
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Record that a customer's water purifier was replaced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReplace(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.phone, config.FlagPhone, "", config.FlagDescPhone)
	f.StringVar(&opts.date, config.FlagDate, "", config.FlagDescDate)
	f.StringVar(&opts.cycle, config.FlagCycle, "", config.FlagDescCycle)
	f.StringVar(&opts.notes, config.FlagNotes, "", config.FlagDescNotes)
	f.BoolVar(&opts.confirm, config.FlagConfirm, false, config.FlagDescConfirm)
	return cmd
}

func (a *App) runReplace(cmd *cobra.Command, opts *replaceOptions) error {
	cycle, err := parseCycle(opts.cycle)
	if err != nil {
		return err
	}
	src, err := a.source()
	if err != nil {
		return err
	}

	r := &engine.Replacer{Source: src, Poster: a.poster(), Clock: a.clock()}
	next, err := r.Replace(cmd.Context(), engine.ReplaceRequest{
		Phone:     opts.phone,
		Date:      a.dateOrToday(opts.date),
		Cycle:     cycle,
		Extra:     opts.notes,
		Confirmed: opts.confirm,
	})
	if errors.Is(err, engine.ErrNotConfirmed) {
		a.println(a.tr.Msg(config.TKeyMsgNotConf))
		return nil
	}
	if err != nil {
		return err
	}
	a.println(a.tr.Format(config.TKeyMsgReplaced, map[string]any{"Next": next}))
	return nil
}

// poster submits to the endpoint; local mode has no write path.
func (a *App) poster() engine.RecordPoster {
	c := engine.NewClient(a.settings.EndpointURL)
	c.Clock = a.clock()
	return c
}

func (a *App) dateOrToday(date string) string {
	if strings.TrimSpace(date) == "" {
		return a.now().Format(config.DateFormatISO)
	}
	return date
}

func parsePurposes(names []string) ([]catalog.Purpose, error) {
	out := make([]catalog.Purpose, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n == "" {
			continue
		}
		p, err := catalog.ParsePurpose(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrValidation, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parseItems(names []string) ([]catalog.Item, error) {
	out := make([]catalog.Item, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n == "" {
			continue
		}
		it, err := catalog.ParseItem(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", engine.ErrValidation, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// parseCycle accepts an empty value as "no cycle"; NewRecord decides whether one is required.
func parseCycle(name string) (catalog.Cycle, error) {
	if name = strings.TrimSpace(name); name == "" {
		return catalog.CycleNone, nil
	}
	c, err := catalog.ParseCycle(name)
	if err != nil {
		return catalog.CycleNone, fmt.Errorf("%w: %w", engine.ErrValidation, err)
	}
	return c, nil
}
