package cli

import (
	"encoding/json"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
	"github.com/tartampluch/go-svcrecords/internal/store"
)

type queryOptions struct {
	phone     string
	onlyWater bool
	offline   bool
	asJSON    bool
}

func (a *App) queryCommand() *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List a customer's records, newest ROC date first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runQuery(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.phone, config.FlagPhone, "", config.FlagDescPhone)
	f.BoolVar(&opts.onlyWater, config.FlagOnlyWater, false, config.FlagDescOnlyWater)
	f.BoolVar(&opts.offline, config.FlagOffline, false, config.FlagDescOffline)
	f.BoolVar(&opts.asJSON, config.FlagJSON, false, config.FlagDescJSON)
	return cmd
}

func (a *App) runQuery(cmd *cobra.Command, opts *queryOptions) error {
	phone, err := requirePhone(opts.phone)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	log := slog.With(config.LogKeyComponent, config.CompCLI)

	st, err := a.openStore()
	if err != nil {
		if opts.offline {
			return err
		}
		log.Warn(config.MsgStoreSkipped, config.LogKeyError, err)
	} else {
		defer func() { _ = st.Close() }()
	}

	var rows []any
	if opts.offline {
		src := &store.OfflineSource{Store: st}
		if rows, err = src.Rows(ctx, phone); err != nil {
			return err
		}
		if !opts.asJSON {
			a.println(a.tr.Format(config.TKeyMsgOffline, map[string]any{
				"FetchedAt": src.FetchedAt.Local().Format(config.DateTimeFormatStore),
			}))
		}
	} else {
		src, err := a.source()
		if err != nil {
			return err
		}
		if st != nil {
			src = &store.CachingSource{Source: src, Store: st, Now: a.now}
		}
		if rows, err = src.Rows(ctx, phone); err != nil {
			return err
		}
	}

	display := a.tr.Labels().Render(records.Rank(rows), opts.onlyWater)
	log.Info(config.MsgRanked,
		config.LogKeyTotal, len(rows),
		config.LogKeyCount, len(display),
	)

	if opts.asJSON {
		return a.writeJSON(display)
	}
	a.printRows(display)
	return nil
}

// jsonKeys names the cells of a display row in --json output.
var jsonKeys = [records.ColumnCount]string{
	records.ColDate:        "date_roc",
	records.ColName:        "name",
	records.ColPhone:       "phone",
	records.ColAddress:     "address",
	records.ColPurposes:    "purposes",
	records.ColItems:       "items",
	records.ColWaterStatus: "water_status",
	records.ColFollowup:    "followup",
	records.ColNotes:       "notes",
}

func (a *App) writeJSON(rows []records.DisplayRow) error {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, records.ColumnCount)
		for i, key := range jsonKeys {
			obj[key] = row[i]
		}
		out = append(out, obj)
	}
	enc := json.NewEncoder(a.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// printRows prints the full table followed by the newest row on its own.
func (a *App) printRows(rows []records.DisplayRow) {
	if len(rows) == 0 {
		a.println(a.tr.Msg(config.TKeyMsgNoData))
		return
	}
	headers := a.tr.Headers()

	a.println(titleStyle.Render(a.tr.Msg(config.TKeyTitleResults)))
	a.println(renderTable(headers, rows))

	if latest, ok := records.Latest(rows); ok {
		a.println(titleStyle.Render(a.tr.Msg(config.TKeyTitleLatest)))
		a.println(renderTable(headers, []records.DisplayRow{latest}))
	}
	a.println(a.tr.Msg(config.TKeyMsgSorted))
}

func renderTable(headers []string, rows []records.DisplayRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, row := range rows {
		row := row // per-iteration copy: the table keeps the slice
		t.Row(row[:]...)
	}
	return t.Render()
}
