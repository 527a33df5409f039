// Package export serializes answered queries for offline inspection.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"research-rag/internal/domain"
)

// WriteJSON writes the results as a pretty-printed JSON array to path,
// overwriting any existing file.
func WriteJSON(path string, results []*domain.QueryResult) error {
	if len(results) == 0 {
		return errors.New("nothing to export")
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
