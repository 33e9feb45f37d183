package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/djeeteg007/tf-audit/internal/report"
)

// JSON renders the report as machine-readable JSON with stable field names.
func JSON(w io.Writer, rep report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
