// Package locale provides translated labels, column headers and messages.
package locale

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"
)

// bundle is built once from the embedded locale files.
var bundle = sync.OnceValues(loadBundle)

// loadBundle initializes the translation bundle and detects available languages.
func loadBundle() (*i18n.Bundle, []string) {
	b := i18n.NewBundle(language.MustParse(config.DefaultLanguage))
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return b, nil
	}

	var detected []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := b.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		detected = append(detected, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
		)
	}
	return b, detected
}

// Languages lists the language codes found in the embedded locale files.
func Languages() []string {
	_, langs := bundle()
	return langs
}

// Translator resolves messages for one language, falling back to zh-TW.
type Translator struct {
	localizer *i18n.Localizer
}

// New returns a Translator for lang. An empty lang means the default language.
func New(lang string) *Translator {
	if lang == "" {
		lang = config.DefaultLanguage
	}
	b, _ := bundle()
	return &Translator{localizer: i18n.NewLocalizer(b, lang)}
}

// Msg translates key; a missing key is returned unchanged.
func (t *Translator) Msg(key string) string {
	return t.Format(key, nil)
}

// Format translates key with template data.
func (t *Translator) Format(key string, data map[string]any) string {
	if t == nil || t.localizer == nil {
		return key
	}
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Labels returns the cell vocabulary used when rendering rows.
func (t *Translator) Labels() records.Labels {
	return records.Labels{
		NotReplaced:    t.Msg(config.TKeyNotReplaced),
		Replaced:       t.Msg(config.TKeyReplaced),
		ReplacePrefix:  t.Msg(config.TKeyReplacePfx),
		WarrantyPrefix: t.Msg(config.TKeyWarrantyPfx),
		WaterItem:      t.Msg(config.TKeyWaterItem),
	}
}

// headerKeys follows the records.Col* order.
var headerKeys = [records.ColumnCount]string{
	records.ColDate:        config.TKeyColDate,
	records.ColName:        config.TKeyColName,
	records.ColPhone:       config.TKeyColPhone,
	records.ColAddress:     config.TKeyColAddress,
	records.ColPurposes:    config.TKeyColPurposes,
	records.ColItems:       config.TKeyColItems,
	records.ColWaterStatus: config.TKeyColWater,
	records.ColFollowup:    config.TKeyColFollowup,
	records.ColNotes:       config.TKeyColNotes,
}

// Headers returns the translated column headers.
func (t *Translator) Headers() []string {
	out := make([]string, 0, len(headerKeys))
	for _, k := range headerKeys {
		out = append(out, t.Msg(k))
	}
	return out
}
