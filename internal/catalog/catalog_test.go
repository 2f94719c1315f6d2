package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

func TestCycleMonths(t *testing.T) {
	tests := []struct {
		name   string
		months int
	}{
		{"半年", 6},
		{"一年", 12},
		{"一年半", 18},
		{"兩年", 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := catalog.ParseCycle(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.months, c.Months())
			assert.Equal(t, tt.name, c.String())
		})
	}

	c, err := catalog.ParseCycle("三年")
	assert.Error(t, err)
	assert.Equal(t, catalog.CycleNone, c)
	assert.Zero(t, c.Months())
}

func TestParseItemAndPurpose(t *testing.T) {
	for _, it := range catalog.Items {
		got, err := catalog.ParseItem(it.String())
		require.NoError(t, err)
		assert.Equal(t, it, got)
	}
	_, err := catalog.ParseItem("冷氣")
	assert.Error(t, err)

	p, err := catalog.ParsePurpose("購買")
	require.NoError(t, err)
	assert.Equal(t, catalog.PurposePurchase, p)
	_, err = catalog.ParsePurpose("維修")
	assert.Error(t, err)

	assert.Equal(t, "淨水設備", catalog.WaterItemName)
}

func TestDeriveFollowups(t *testing.T) {
	date := roc.NewDate(2024, 1, 31)

	tests := []struct {
		name  string
		date  roc.Date
		items []catalog.Item
		cycle catalog.Cycle
		want  catalog.Followups
	}{
		{
			name:  "Water with half year cycle",
			date:  date,
			items: []catalog.Item{catalog.ItemWater},
			cycle: catalog.CycleHalfYear,
			want:  catalog.Followups{NextReplace: "113.07.31"},
		},
		{
			name:  "Water without cycle",
			date:  date,
			items: []catalog.Item{catalog.ItemWater},
			cycle: catalog.CycleNone,
			want:  catalog.Followups{},
		},
		{
			name:  "Gas warranty",
			date:  roc.NewDate(2024, 2, 29),
			items: []catalog.Item{catalog.ItemGas},
			want:  catalog.Followups{WarrantyEnd: "114.02.28"},
		},
		{
			name:  "Water and gas",
			date:  date,
			items: []catalog.Item{catalog.ItemGas, catalog.ItemWater},
			cycle: catalog.CycleOneAndHalfYear,
			want:  catalog.Followups{NextReplace: "114.07.31", WarrantyEnd: "114.01.31"},
		},
		{
			name:  "Cycle ignored without water",
			date:  date,
			items: []catalog.Item{catalog.ItemCabinet},
			cycle: catalog.CycleTwoYears,
			want:  catalog.Followups{},
		},
		{
			name:  "Invalid date",
			date:  roc.NewDate(2024, 2, 30),
			items: []catalog.Item{catalog.ItemWater, catalog.ItemGas},
			cycle: catalog.CycleOneYear,
			want:  catalog.Followups{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.DeriveFollowups(tt.date, tt.items, tt.cycle))
		})
	}
}
