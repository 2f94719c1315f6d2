package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/engine"
	"github.com/tartampluch/go-svcrecords/internal/records"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockSource simulates the record store using `testify/mock`.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Rows(ctx context.Context, phone string) ([]any, error) {
	args := m.Called(ctx, phone)
	if r := args.Get(0); r != nil {
		return r.([]any), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPoster captures submitted records.
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) PostRecord(ctx context.Context, data records.Record) (engine.PostResult, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(engine.PostResult), args.Error(1)
}

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// -----------------------------------------------------------------------------
// NewRecord
// -----------------------------------------------------------------------------

func TestNewRecord_WaterAndGas(t *testing.T) {
	rec, err := engine.NewRecord(engine.Submission{
		ServiceDate: "2024-01-31",
		Name:        " 王小明 ",
		Phone:       "0912345678",
		Address:     "台北市",
		Purposes:    []catalog.Purpose{catalog.PurposeInstall},
		Items:       []catalog.Item{catalog.ItemWater, catalog.ItemGas},
		Cycle:       catalog.CycleOneYear,
		Notes:       "first visit",
	}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-31", rec[config.FieldServiceDateAD])
	assert.Equal(t, "113.01.31", rec[config.FieldServiceDateROC])
	assert.Equal(t, "王小明", rec[config.FieldCustomerName])
	assert.Equal(t, []string{"安裝"}, rec[config.FieldPurposes])
	assert.Equal(t, []string{"淨水設備", "瓦斯爐具器具"}, rec[config.FieldItems])
	assert.Equal(t, "一年", rec[config.FieldWaterCycle])
	assert.Equal(t, "114.01.31", rec[config.FieldNextReplaceROC])
	assert.Equal(t, "114.01.31", rec[config.FieldWarrantyEndROC])
	assert.Equal(t, "2024-03-15 09:30:00", rec[config.FieldCreatedAt])
}

func TestNewRecord_CycleIgnoredWithoutWater(t *testing.T) {
	rec, err := engine.NewRecord(engine.Submission{
		ServiceDate: "2024-01-31",
		Name:        "A",
		Phone:       "1",
		Items:       []catalog.Item{catalog.ItemCabinet},
		Cycle:       catalog.CycleTwoYears,
	}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "", rec[config.FieldWaterCycle])
	assert.Equal(t, "", rec[config.FieldNextReplaceROC])
	assert.Equal(t, "", rec[config.FieldWarrantyEndROC])
}

func TestNewRecord_Validation(t *testing.T) {
	valid := engine.Submission{ServiceDate: "2024-01-31", Name: "A", Phone: "1"}

	tests := []struct {
		name    string
		mutate  func(s *engine.Submission)
		wantMsg string
	}{
		{"DateShape", func(s *engine.Submission) { s.ServiceDate = "113.01.31" }, config.ErrDateShape},
		{"DateInvalid", func(s *engine.Submission) { s.ServiceDate = "2024-02-30" }, config.ErrDateInvalid},
		{"NameMissing", func(s *engine.Submission) { s.Name = "  " }, config.ErrNamePhoneReq},
		{"PhoneMissing", func(s *engine.Submission) { s.Phone = "" }, config.ErrNamePhoneReq},
		{"OtherWithoutText", func(s *engine.Submission) { s.Items = []catalog.Item{catalog.ItemOther} }, config.ErrOtherTextReq},
		{"WaterWithoutCycle", func(s *engine.Submission) { s.Items = []catalog.Item{catalog.ItemWater} }, config.ErrCycleReq},
		// The date check wins over later problems.
		{"FirstErrorOnly", func(s *engine.Submission) { s.ServiceDate = ""; s.Name = "" }, config.ErrDateShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			rec, err := engine.NewRecord(s, fixedNow)
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, engine.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// -----------------------------------------------------------------------------
// Replacer
// -----------------------------------------------------------------------------

func TestReplacer_Success(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything, "0912").Return([]any{
		map[string]any{"customer_name": "舊名", "address": "舊址", "created_at": "2023-01-01 08:00:00"},
		map[string]any{"customer_name": "王小明", "address": "台北市", "created_at": "2024-02-01 08:00:00"},
	}, nil)

	poster := new(MockPoster)
	poster.On("PostRecord", mock.Anything, mock.MatchedBy(func(r records.Record) bool {
		return r.Str(config.FieldCustomerName) == "王小明" &&
			r.Str(config.FieldAddress) == "台北市" &&
			r.Str(config.FieldNotes) == "淨水設備更換｜換濾心" &&
			r.HasItem("淨水設備") &&
			r.Str(config.FieldWaterCycle) == "半年"
	})).Return(engine.PostResult{}, nil)

	r := &engine.Replacer{Source: src, Poster: poster, Clock: MockClock{CurrentTime: fixedNow}}
	next, err := r.Replace(context.Background(), engine.ReplaceRequest{
		Phone:     " 0912 ",
		Date:      "2024-08-31",
		Cycle:     catalog.CycleHalfYear,
		Extra:     "換濾心",
		Confirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "114.02.28", next)

	src.AssertExpectations(t)
	poster.AssertExpectations(t)
}

func TestReplacer_Failures(t *testing.T) {
	t.Run("NotConfirmed", func(t *testing.T) {
		r := &engine.Replacer{Source: new(MockSource), Poster: new(MockPoster)}
		_, err := r.Replace(context.Background(), engine.ReplaceRequest{Phone: "1", Date: "2024-01-01", Cycle: catalog.CycleOneYear})
		assert.ErrorIs(t, err, engine.ErrNotConfirmed)
	})

	t.Run("PhoneRequired", func(t *testing.T) {
		r := &engine.Replacer{Source: new(MockSource), Poster: new(MockPoster)}
		_, err := r.Replace(context.Background(), engine.ReplaceRequest{Confirmed: true})
		assert.ErrorIs(t, err, engine.ErrValidation)
	})

	t.Run("NoRows", func(t *testing.T) {
		src := new(MockSource)
		src.On("Rows", mock.Anything, "1").Return([]any{}, nil)
		poster := new(MockPoster)

		r := &engine.Replacer{Source: src, Poster: poster}
		_, err := r.Replace(context.Background(), engine.ReplaceRequest{Phone: "1", Date: "2024-01-01", Cycle: catalog.CycleOneYear, Confirmed: true})
		assert.ErrorIs(t, err, engine.ErrNoRows)
		poster.AssertNotCalled(t, "PostRecord", mock.Anything, mock.Anything)
	})

	t.Run("FetchError", func(t *testing.T) {
		src := new(MockSource)
		src.On("Rows", mock.Anything, "1").Return(nil, errors.New("offline"))

		r := &engine.Replacer{Source: src, Poster: new(MockPoster)}
		_, err := r.Replace(context.Background(), engine.ReplaceRequest{Phone: "1", Date: "2024-01-01", Cycle: catalog.CycleOneYear, Confirmed: true})
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.ErrFetchRaw)
	})

	t.Run("InputCheckedBeforeFetch", func(t *testing.T) {
		tests := []struct {
			name  string
			date  string
			cycle catalog.Cycle
			want  string
		}{
			{"BadShape", "not-a-date", catalog.CycleOneYear, config.ErrDateShape},
			{"ImpossibleDate", "2024-02-30", catalog.CycleOneYear, config.ErrDateInvalid},
			{"MissingCycle", "2024-01-01", catalog.CycleNone, config.ErrCycleReq},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				src := new(MockSource)
				src.On("Rows", mock.Anything, "1").Return(nil, errors.New("endpoint unreachable"))
				poster := new(MockPoster)

				r := &engine.Replacer{Source: src, Poster: poster}
				_, err := r.Replace(context.Background(), engine.ReplaceRequest{Phone: "1", Date: tt.date, Cycle: tt.cycle, Confirmed: true})
				assert.ErrorIs(t, err, engine.ErrValidation)
				assert.Contains(t, err.Error(), tt.want)
				assert.Empty(t, src.Calls)
				poster.AssertNotCalled(t, "PostRecord", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("PostError", func(t *testing.T) {
		src := new(MockSource)
		src.On("Rows", mock.Anything, "1").Return([]any{map[string]any{"customer_name": "A"}}, nil)
		poster := new(MockPoster)
		poster.On("PostRecord", mock.Anything, mock.Anything).Return(engine.PostResult{}, engine.ErrRejected)

		r := &engine.Replacer{Source: src, Poster: poster}
		_, err := r.Replace(context.Background(), engine.ReplaceRequest{Phone: "1", Date: "2024-01-01", Cycle: catalog.CycleOneYear, Confirmed: true})
		assert.ErrorIs(t, err, engine.ErrRejected)
		assert.Contains(t, err.Error(), config.ErrPostReplacement)
	})
}

// -----------------------------------------------------------------------------
// FeedGenerator
// -----------------------------------------------------------------------------

func feedRows() []any {
	return []any{
		// Older water unit, already replaced: no event.
		map[string]any{
			"service_date_roc": "112.01.10", "customer_name": "王小明", "items": []any{"淨水設備"},
			"next_replace_date_roc": "113.01.10", "created_at": "2023-01-10 10:00:00",
		},
		// Current water unit plus gas warranty.
		map[string]any{
			"service_date_roc": "113.02.01", "customer_name": "王小明", "address": "台北市",
			"items": `["淨水設備","瓦斯爐具器具"]`, "next_replace_date_roc": "113.08.01",
			"warranty_end_date_roc": "114.02.01", "created_at": "2024-02-01 10:00:00",
		},
	}
}

func decodeEvents(t *testing.T, ics []byte) []ical.Event {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(string(ics))).Decode()
	require.NoError(t, err)
	return cal.Events()
}

func TestFeedGenerator_Events(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything, "0912").Return(feedRows(), nil)

	g := &engine.FeedGenerator{
		Source: src,
		Clock:  MockClock{CurrentTime: fixedNow},
		FormatSummary: func(kind, name string) string {
			return kind + "/" + name
		},
	}
	ics, count, err := g.Generate(context.Background(), []string{"0912", " "})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	events := decodeEvents(t, ics)
	require.Len(t, events, 2)

	summaries := map[string]string{}
	for _, e := range events {
		summary, err := e.Props.Text(config.PropSummary)
		require.NoError(t, err)
		start := e.Props.Get(config.PropDTStart)
		require.NotNil(t, start)
		summaries[summary] = start.Value
	}
	assert.Equal(t, map[string]string{
		"next_replace/王小明": "20240801",
		"warranty/王小明":     "20250201",
	}, summaries)

	// Only the tracked, non-blank phone was queried.
	src.AssertNumberOfCalls(t, "Rows", 1)
}

// TestFeedGenerator_StableUIDs ensures refreshes do not duplicate events in clients.
func TestFeedGenerator_StableUIDs(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything, "0912").Return(feedRows(), nil)

	uids := func(now time.Time) []string {
		g := &engine.FeedGenerator{Source: src, Clock: MockClock{CurrentTime: now}}
		ics, _, err := g.Generate(context.Background(), []string{"0912"})
		require.NoError(t, err)
		var out []string
		for _, e := range decodeEvents(t, ics) {
			uid, err := e.Props.Text(config.PropUID)
			require.NoError(t, err)
			out = append(out, uid)
		}
		return out
	}

	first := uids(fixedNow)
	second := uids(fixedNow.Add(48 * time.Hour))
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0], first[1])
}

func TestFeedGenerator_EmptyReturnsStub(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything, "1").Return([]any{map[string]any{"customer_name": "A"}}, nil)

	g := &engine.FeedGenerator{Source: src, Clock: MockClock{CurrentTime: fixedNow}}
	ics, count, err := g.Generate(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, config.StubVCalendar, string(ics))
}

func TestFeedGenerator_Errors(t *testing.T) {
	t.Run("SourceError", func(t *testing.T) {
		src := new(MockSource)
		src.On("Rows", mock.Anything, "1").Return(nil, errors.New("boom"))

		g := &engine.FeedGenerator{Source: src}
		_, _, err := g.Generate(context.Background(), []string{"1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		g := &engine.FeedGenerator{Source: new(MockSource)}
		_, _, err := g.Generate(ctx, []string{"1"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("NoSource", func(t *testing.T) {
		g := &engine.FeedGenerator{}
		_, _, err := g.Generate(context.Background(), []string{"1"})
		assert.EqualError(t, err, config.ErrSourceMissing)
	})
}

// -----------------------------------------------------------------------------
// Sources
// -----------------------------------------------------------------------------

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileSource_Formats(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Response", `{"ok":true,"rows":[{"phone":"1","customer_name":"A"},{"phone":"2"},"junk"]}`},
		{"BareArray", `[{"phone":" 1 ","customer_name":"A"},{"phone":"2"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &engine.FileSource{Path: writeFile(t, tt.content)}

			rows, err := src.Rows(context.Background(), "1")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "A", rows[0].(map[string]any)["customer_name"])
		})
	}
}

func TestFileSource_Errors(t *testing.T) {
	_, err := (&engine.FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}).Rows(context.Background(), "1")
	assert.ErrorContains(t, err, config.ErrLocalRead)

	_, err = (&engine.FileSource{Path: writeFile(t, `{broken`)}).Rows(context.Background(), "1")
	assert.ErrorContains(t, err, config.ErrLocalDecode)

	_, err = (&engine.FileSource{Path: writeFile(t, `"text"`)}).Rows(context.Background(), "1")
	assert.ErrorIs(t, err, engine.ErrBadResponse)

	_, err = (&engine.FileSource{Path: writeFile(t, `{"ok":false,"error":"denied"}`)}).Rows(context.Background(), "1")
	assert.ErrorIs(t, err, engine.ErrRejected)
}

func TestNewSource(t *testing.T) {
	src, err := engine.NewSource(config.SourceModeWeb, "https://example.com/exec", "")
	require.NoError(t, err)
	assert.IsType(t, &engine.Client{}, src)

	src, err = engine.NewSource(config.SourceModeLocal, "", "/tmp/rows.json")
	require.NoError(t, err)
	assert.IsType(t, &engine.FileSource{}, src)

	_, err = engine.NewSource(config.SourceModeWeb, "", "")
	assert.EqualError(t, err, config.ErrEndpointEmpty)

	_, err = engine.NewSource(config.SourceModeLocal, "", "")
	assert.EqualError(t, err, config.ErrLocalPathEmpty)

	_, err = engine.NewSource("ftp", "", "")
	assert.ErrorContains(t, err, config.ErrModeUnsupport)
}

// -----------------------------------------------------------------------------
// Contact card
// -----------------------------------------------------------------------------

func TestContactCard(t *testing.T) {
	card, ok := engine.ContactCard(feedRows())
	require.True(t, ok)

	assert.Equal(t, "王小明", card.Value(vcard.FieldFormattedName))
	assert.Equal(t, "4.0", card.Value(vcard.FieldVersion))
	assert.Equal(t, "更換：113.08.01", card.Value(vcard.FieldNote))
	assert.Contains(t, card.Value(vcard.FieldAddress), "台北市")

	data, err := engine.EncodeCard(card)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCARD")
	assert.Contains(t, string(data), "FN:王小明")
}

func TestContactCard_Empty(t *testing.T) {
	_, ok := engine.ContactCard([]any{"not an object"})
	assert.False(t, ok)
}
