// Package report renders the audit trail into an operator-facing
// spreadsheet.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"kyc-verification/internal/core/ports"
)

const sheetName = "Audit Trail"

var headers = []string{"#", "Entry ID", "Timestamp (UTC)", "Step", "Status", "Details"}

// WriteAuditXLSX renders the full ordered audit log as a workbook.
func WriteAuditXLSX(ctx context.Context, log ports.AuditLog, w io.Writer) error {
	entries, err := log.List(ctx)
	if err != nil {
		return fmt.Errorf("list audit entries: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, entry := range entries {
		details := ""
		if len(entry.Details) > 0 {
			raw, err := json.Marshal(entry.Details)
			if err == nil {
				details = string(raw)
			}
		}
		values := []any{
			i + 1,
			entry.ID,
			entry.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			string(entry.Step),
			string(entry.Status),
			details,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
