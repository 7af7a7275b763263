package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// JSONRecorder writes one summary file per day into a directory.
type JSONRecorder struct {
	dir string
}

func NewJSONRecorder(dir string) (*JSONRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create summary dir: %w", err)
	}
	return &JSONRecorder{dir: dir}, nil
}

func (r *JSONRecorder) Record(_ context.Context, s DaySummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	name := fmt.Sprintf("trade_summary_%s.json", strings.ReplaceAll(s.Day, "-", ""))
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
