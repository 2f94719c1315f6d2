package cli

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/engine"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

func (a *App) rocCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "roc <YYYY-MM-DD>",
		Short:   "Convert a Gregorian date to the ROC calendar",
		Example: "  svcrecords roc 2024-03-15   # 113.03.15",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := parseDate(args[0])
			if err != nil {
				return err
			}
			a.println(a.tr.Format(config.TKeyRocLabel, map[string]any{"Roc": d.Roc()}))
			return nil
		},
	}
}

type followupOptions struct {
	date  string
	items []string
	cycle string
}

func (a *App) followupsCommand() *cobra.Command {
	opts := &followupOptions{}
	cmd := &cobra.Command{
		Use:   "followups",
		Short: "Show the replacement and warranty dates a service would get",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := parseDate(a.dateOrToday(opts.date))
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

			f := catalog.DeriveFollowups(d, items, cycle)
			labels := a.tr.Labels()
			a.println(a.tr.Format(config.TKeyRocLabel, map[string]any{"Roc": d.Roc()}))
			if f.NextReplace != "" {
				a.println(labels.ReplacePrefix + f.NextReplace)
			}
			if f.WarrantyEnd != "" {
				a.println(labels.WarrantyPrefix + f.WarrantyEnd)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.date, config.FlagDate, "", config.FlagDescDate)
	f.StringSliceVar(&opts.items, config.FlagItems, nil, config.FlagDescItems)
	f.StringVar(&opts.cycle, config.FlagCycle, "", config.FlagDescCycle)
	return cmd
}

func (a *App) vcardCommand() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "vcard",
		Short: "Export a customer's contact card (vCard 4.0)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := requirePhone(phone)
			if err != nil {
				return err
			}
			src, err := a.source()
			if err != nil {
				return err
			}
			rows, err := src.Rows(cmd.Context(), p)
			if err != nil {
				return err
			}
			card, ok := engine.ContactCard(rows)
			if !ok {
				return engine.ErrNoRows
			}
			data, err := engine.EncodeCard(card)
			if err != nil {
				return err
			}
			_, err = a.out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&phone, config.FlagPhone, "", config.FlagDescPhone)
	return cmd
}

func (a *App) endpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Manage the remote endpoint URL",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Store the endpoint URL in the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			u, err := url.Parse(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
			}
			if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
				return errors.New(config.ErrProtocol)
			}
			if err := config.StoreEndpoint(raw); err != nil {
				return err
			}
			a.println(config.MsgEndpointSaved)
			return nil
		},
	})
	return cmd
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Printing the version must not depend on a readable settings file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(*cobra.Command, []string) {
			a.printf(config.MsgVersionOutput, config.AppName, config.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}

// parseDate accepts YYYY-MM-DD and rejects impossible dates.
func parseDate(text string) (roc.Date, error) {
	if !roc.IsYmd(text) {
		return roc.Date{}, fmt.Errorf("%w: %s", engine.ErrValidation, config.ErrDateShape)
	}
	d, ok := roc.ParseYmd(text)
	if !ok {
		return roc.Date{}, fmt.Errorf("%w: %s", engine.ErrValidation, config.ErrDateInvalid)
	}
	return d, nil
}
