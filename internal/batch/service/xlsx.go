package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	batchdomain "github.com/parsbill/parsbill/internal/batch/domain"
	"github.com/xuri/excelize/v2"
)

// Invoice sheet columns, in order:
// invoice_no, representative_code, service_class, duration_months, quantity,
// unit_price, discount_amount, tax_amount, issue_date, due_date, description.
func (s *Service) ReadInvoiceRows(r io.Reader) ([]batchdomain.InvoiceRow, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	out := make([]batchdomain.InvoiceRow, 0, len(rows))
	for i, cells := range rows {
		row := batchdomain.InvoiceRow{
			InvoiceNo:          cell(cells, 0),
			RepresentativeCode: cell(cells, 1),
			ServiceClass:       strings.ToLower(cell(cells, 2)),
			Description:        cell(cells, 10),
		}
		if row.DurationMonths, err = cellInt(cells, 3); err != nil {
			return nil, fmt.Errorf("row %d: duration_months: %w", i+2, err)
		}
		var qty int64
		if qty, err = cellInt64(cells, 4); err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", i+2, err)
		}
		row.Quantity = qty
		if row.UnitPrice, err = cellInt64(cells, 5); err != nil {
			return nil, fmt.Errorf("row %d: unit_price: %w", i+2, err)
		}
		if row.DiscountAmount, err = cellInt64(cells, 6); err != nil {
			return nil, fmt.Errorf("row %d: discount_amount: %w", i+2, err)
		}
		if row.TaxAmount, err = cellInt64(cells, 7); err != nil {
			return nil, fmt.Errorf("row %d: tax_amount: %w", i+2, err)
		}
		if row.IssueDate, err = cellDate(cells, 8); err != nil {
			return nil, fmt.Errorf("row %d: issue_date: %w", i+2, err)
		}
		if row.DueDate, err = cellDate(cells, 9); err != nil {
			return nil, fmt.Errorf("row %d: due_date: %w", i+2, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// Representative sheet columns, in order:
// code, name, phone, telegram_id, sourcing_type, collaborator_code,
// commission_override, limited_1m..limited_6m, unlimited_1m..unlimited_6m.
func (s *Service) ReadRepresentativeRows(r io.Reader) ([]batchdomain.RepresentativeRow, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	out := make([]batchdomain.RepresentativeRow, 0, len(rows))
	for i, cells := range rows {
		row := batchdomain.RepresentativeRow{
			Code:             cell(cells, 0),
			Name:             cell(cells, 1),
			Phone:            cell(cells, 2),
			TelegramID:       cell(cells, 3),
			SourcingType:     strings.ToLower(cell(cells, 4)),
			CollaboratorCode: cell(cells, 5),
		}
		if row.CommissionOverride, err = cellFloat(cells, 6); err != nil {
			return nil, fmt.Errorf("row %d: commission_override: %w", i+2, err)
		}
		for j := 0; j < 6; j++ {
			if row.Limited[j], err = cellInt64(cells, 7+j); err != nil {
				return nil, fmt.Errorf("row %d: limited_%dm: %w", i+2, j+1, err)
			}
			if row.Unlimited[j], err = cellInt64(cells, 13+j); err != nil {
				return nil, fmt.Errorf("row %d: unlimited_%dm: %w", i+2, j+1, err)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, batchdomain.ErrInvalidSheet
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, batchdomain.ErrInvalidSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, batchdomain.ErrEmptyBatch
	}
	return rows[1:], nil
}

func cell(cells []string, idx int) string {
	if idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func cellInt(cells []string, idx int) (int, error) {
	raw := cell(cells, idx)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func cellInt64(cells []string, idx int) (int64, error) {
	raw := cell(cells, idx)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func cellFloat(cells []string, idx int) (float64, error) {
	raw := cell(cells, idx)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func cellDate(cells []string, idx int) (time.Time, error) {
	raw := cell(cells, idx)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", "2006/01/02", "01-02-06", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
