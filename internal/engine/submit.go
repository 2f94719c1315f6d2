package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New(config.ErrValidation)

// Submission is a service record as entered by the operator.
type Submission struct {
	ServiceDate   string // YYYY-MM-DD
	Name          string
	Phone         string
	Address       string
	Purposes      []catalog.Purpose
	Items         []catalog.Item
	OtherItemText string
	Cycle         catalog.Cycle
	Notes         string
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NewRecord validates s and builds the record to submit, stamped with now.
// Checks run in a fixed order so the operator sees the first problem only.
func NewRecord(s Submission, now time.Time) (records.Record, error) {
	if !roc.IsYmd(s.ServiceDate) {
		return nil, invalid(config.ErrDateShape)
	}
	date, ok := roc.ParseYmd(s.ServiceDate)
	if !ok {
		return nil, invalid(config.ErrDateInvalid)
	}

	name := strings.TrimSpace(s.Name)
	phone := strings.TrimSpace(s.Phone)
	if name == "" || phone == "" {
		return nil, invalid(config.ErrNamePhoneReq)
	}

	other := strings.TrimSpace(s.OtherItemText)
	if catalog.Contains(s.Items, catalog.ItemOther) && other == "" {
		return nil, invalid(config.ErrOtherTextReq)
	}

	water := catalog.Contains(s.Items, catalog.ItemWater)
	if water && s.Cycle.Months() == 0 {
		return nil, invalid(config.ErrCycleReq)
	}

	cycle := ""
	if water {
		cycle = s.Cycle.String()
	}
	follow := catalog.DeriveFollowups(date, s.Items, s.Cycle)

	return records.Record{
		config.FieldServiceDateAD:  date.ISO(),
		config.FieldServiceDateROC: date.Roc(),
		config.FieldCustomerName:   name,
		config.FieldPhone:          phone,
		config.FieldAddress:        strings.TrimSpace(s.Address),
		config.FieldPurposes:       catalog.PurposeNames(s.Purposes),
		config.FieldItems:          catalog.Names(s.Items),
		config.FieldOtherItemText:  other,
		config.FieldWaterCycle:     cycle,
		config.FieldNextReplaceROC: follow.NextReplace,
		config.FieldWarrantyEndROC: follow.WarrantyEnd,
		config.FieldNotes:          strings.TrimSpace(s.Notes),
		config.FieldCreatedAt:      now.Format(config.DateTimeFormatStore),
	}, nil
}
