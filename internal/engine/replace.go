package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

// Errors returned by Replacer.
var (
	ErrNotConfirmed = errors.New(config.ErrNotConfirmed)
	ErrNoRows       = errors.New(config.ErrNoRowsForPhone)
)

// ReplaceRequest describes a completed water-unit replacement.
type ReplaceRequest struct {
	Phone     string
	Date      string // YYYY-MM-DD
	Cycle     catalog.Cycle
	Extra     string
	Confirmed bool
}

// Replacer records a water-unit replacement for an existing customer.
type Replacer struct {
	Source RecordSource
	Poster RecordPoster
	Clock  Clock
}

// Replace copies the customer's details from their newest record into a new
// installation record for the water item and submits it. It returns the next
// replacement date (ROC) of the new unit.
func (r *Replacer) Replace(ctx context.Context, req ReplaceRequest) (string, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return "", invalid(config.ErrPhoneReq)
	}
	if !req.Confirmed {
		return "", ErrNotConfirmed
	}
	// Date and cycle are checked before any rows are fetched.
	if !roc.IsYmd(req.Date) {
		return "", invalid(config.ErrDateShape)
	}
	if _, ok := roc.ParseYmd(req.Date); !ok {
		return "", invalid(config.ErrDateInvalid)
	}
	if req.Cycle.Months() <= 0 {
		return "", invalid(config.ErrCycleReq)
	}
	if r.Source == nil || r.Poster == nil {
		return "", errors.New(config.ErrSourceMissing)
	}

	log := slog.With(config.LogKeyComponent, config.CompEngine, config.LogKeyOp, "replace")

	rows, err := r.Source.Rows(ctx, phone)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrFetchRaw, err)
	}
	latest, ok := records.LatestByCreated(records.FromRows(rows))
	if !ok {
		return "", ErrNoRows
	}

	notes := config.ReplaceNote
	if extra := strings.TrimSpace(req.Extra); extra != "" {
		notes += config.ReplaceNoteSep + extra
	}

	clock := r.Clock
	if clock == nil {
		clock = RealClock{}
	}
	rec, err := NewRecord(Submission{
		ServiceDate: req.Date,
		Name:        latest.Str(config.FieldCustomerName),
		Phone:       phone,
		Address:     latest.Str(config.FieldAddress),
		Purposes:    []catalog.Purpose{catalog.PurposeInstall},
		Items:       []catalog.Item{catalog.ItemWater},
		Cycle:       req.Cycle,
		Notes:       notes,
	}, clock.Now())
	if err != nil {
		return "", err
	}

	if _, err := r.Poster.PostRecord(ctx, rec); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrPostReplacement, err)
	}

	next := rec.Str(config.FieldNextReplaceROC)
	log.Info(config.MsgPosted, config.LogKeyValue, next)
	return next, nil
}
