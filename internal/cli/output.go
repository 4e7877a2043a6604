package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sufield/trustboot/internal/core/domain"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: failed to encode output as JSON: %v", ErrInternal, err)
	}
	return nil
}

type reportView struct {
	*domain.ValidationReport
	Passed bool `json:"passed"`
}

func writeReport(w io.Writer, format string, report *domain.ValidationReport) error {
	if report == nil {
		return nil
	}
	if format == "json" {
		return writeJSON(w, reportView{ValidationReport: report, Passed: report.Passed()})
	}
	_, err := io.WriteString(w, report.String())
	return err
}
