package engine

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
)

// ContactCard builds a vCard for the customer of rows, using the newest record
// (by created_at) for the name and address. The note lists the next
// replacement of the water unit currently installed. It returns false when
// rows holds no record.
func ContactCard(rows []any) (vcard.Card, bool) {
	recs := records.FromRows(rows)
	latest, ok := records.LatestByCreated(recs)
	if !ok {
		return nil, false
	}

	name := latest.Str(config.FieldCustomerName)
	if name == "" {
		name = config.FallbackName
	}

	card := make(vcard.Card)
	card.SetValue(vcard.FieldFormattedName, name)
	card.Add(vcard.FieldTelephone, &vcard.Field{
		Value:  latest.Str(config.FieldPhone),
		Params: vcard.Params{vcard.ParamType: {vcard.TypeCell}},
	})
	if addr := latest.Str(config.FieldAddress); addr != "" {
		card.Add(vcard.FieldAddress, &vcard.Field{
			// Free-form address goes into the street component.
			Value:  ";;" + addr + ";;;;",
			Params: vcard.Params{"LABEL": {addr}},
		})
	}

	sorted := records.NormalizeAndSort(recs)
	for i, status := range records.ClassifyWaterStatus(sorted) {
		if status != records.StatusNotReplaced {
			continue
		}
		if next := sorted[i].Record.Str(config.FieldNextReplaceROC); next != "" {
			card.SetValue(vcard.FieldNote, strings.TrimSpace(records.DefaultLabels().ReplacePrefix+next))
		}
	}

	vcard.ToV4(card)
	return card, true
}

// EncodeCard serializes card.
func EncodeCard(card vcard.Card) ([]byte, error) {
	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
	}
	return buf.Bytes(), nil
}
