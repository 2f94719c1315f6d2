package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tartampluch/go-svcrecords/internal/config"
)

// RecordSource yields the raw rows stored for one customer.
type RecordSource interface {
	Rows(ctx context.Context, phone string) ([]any, error)
}

// NewSource opens the source selected by mode.
func NewSource(mode, endpoint, localPath string) (RecordSource, error) {
	switch mode {
	case config.SourceModeWeb:
		if endpoint == "" {
			return nil, errors.New(config.ErrEndpointEmpty)
		}
		return NewClient(endpoint), nil
	case config.SourceModeLocal:
		if localPath == "" {
			return nil, errors.New(config.ErrLocalPathEmpty)
		}
		return &FileSource{Path: localPath}, nil
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrModeUnsupport, mode)
	}
}

// FileSource reads rows from a JSON export on disk. The file holds either a
// full endpoint response ({"ok":true,"rows":[...]}) or a bare array of rows.
type FileSource struct {
	Path string
}

// Rows returns the rows whose phone equals phone. An empty phone returns every row.
func (f *FileSource) Rows(ctx context.Context, phone string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalRead, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalDecode, err)
	}

	var rows []any
	switch v := doc.(type) {
	case []any:
		rows = v
	case map[string]any:
		if err := rejection(v); err != nil {
			return nil, err
		}
		rows, _ = v[config.ResponseRows].([]any)
	default:
		return nil, fmt.Errorf("%s: %w", config.ErrLocalDecode, ErrBadResponse)
	}

	phone = strings.TrimSpace(phone)
	if phone == "" {
		return rows, nil
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		if p, _ := obj[config.FieldPhone].(string); strings.TrimSpace(p) == phone {
			out = append(out, row)
		}
	}
	slog.Debug("Local rows loaded",
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyFile, f.Path,
		config.LogKeyTotal, len(rows),
		config.LogKeyCount, len(out))
	return out, nil
}
