package ledger

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsGateway implements Gateway against a Google spreadsheet.
type SheetsGateway struct {
	svc           *sheets.Service
	spreadsheetID string
}

var _ Gateway = (*SheetsGateway)(nil)

// NewSheetsGateway creates a gateway for the given spreadsheet using a
// service account credentials file.
func NewSheetsGateway(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsGateway, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsGateway{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *SheetsGateway) ReadRows(ctx context.Context, sheet string, expected []string) ([]map[string]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("sheet %s has no header row", sheet)
	}

	headers := make([]string, len(resp.Values[0]))
	for i, h := range resp.Values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(h))
	}
	for _, want := range expected {
		if !contains(headers, want) {
			return nil, fmt.Errorf("sheet %s is missing expected column %q", sheet, want)
		}
	}

	rows := make([]map[string]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(raw) {
				row[h] = fmt.Sprint(raw[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *SheetsGateway) AppendRow(ctx context.Context, sheet string, values []any, idempotencyHint string) error {
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := g.svc.Spreadsheets.Values.
		Append(g.spreadsheetID, sheet+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: append to %s (id %s): %v", ErrUnavailable, sheet, idempotencyHint, err)
	}
	return nil
}

func (g *SheetsGateway) UpdateCells(ctx context.Context, sheet string, cells []Cell) error {
	if len(cells) == 0 {
		return nil
	}
	data := make([]*sheets.ValueRange, 0, len(cells))
	for _, c := range cells {
		data = append(data, &sheets.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", sheet, columnLetter(c.Col), c.Row),
			Values: [][]any{{c.Value}},
		})
	}
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	_, err := g.svc.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: update cells in %s: %v", ErrUnavailable, sheet, err)
	}
	return nil
}

func (g *SheetsGateway) FindCell(ctx context.Context, sheet, value string) (int, int, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read %s: %v", ErrUnavailable, sheet, err)
	}
	for r, raw := range resp.Values {
		for c, cell := range raw {
			if fmt.Sprint(cell) == value {
				return r + 1, c + 1, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("value %q not found in sheet %s", value, sheet)
}

// columnLetter converts a 1-based column number to A1 notation letters.
func columnLetter(col int) string {
	letters := ""
	for col > 0 {
		col--
		letters = string(rune('A'+col%26)) + letters
		col /= 26
	}
	return letters
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
