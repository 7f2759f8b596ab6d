package orb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/orbtrader/internal/domain"
)

// WriteReport writes the per-run backtest report as indented JSON,
// creating parent directories as needed.
func WriteReport(path string, report domain.BacktestReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("orb.WriteReport: marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("orb.WriteReport: mkdir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("orb.WriteReport: write %q: %w", path, err)
	}
	return nil
}
