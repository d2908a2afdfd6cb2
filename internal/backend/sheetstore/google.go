package sheetstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"
)

// Google talks to one spreadsheet through the Sheets v4 values API.
type Google struct {
	svc           *sheets.Service
	spreadsheetID string
}

var _ Client = (*Google)(nil)

// NewGoogle binds a Sheets service to a spreadsheet id.
func NewGoogle(svc *sheets.Service, spreadsheetID string) *Google {
	return &Google{svc: svc, spreadsheetID: spreadsheetID}
}

// SpreadsheetID returns the bound spreadsheet.
func (g *Google) SpreadsheetID() string {
	return g.spreadsheetID
}

func (g *Google) Get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		if isMissingRange(err) {
			return nil, nil
		}
		return nil, classify(err, "get "+rng)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *Google) Update(ctx context.Context, rng string, rows [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, valueRange(rows)).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return classify(err, "update "+rng)
}

func (g *Google) Append(ctx context.Context, rng string, rows [][]string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, rng, valueRange(rows)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return classify(err, "append "+rng)
}

func (g *Google) Clear(ctx context.Context, rng string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(g.spreadsheetID, rng, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil && isMissingRange(err) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, rng)
	}
	return classify(err, "clear "+rng)
}

func (g *Google) CreateTable(ctx context.Context, name string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "already exists") {
		return fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	return classify(err, "create sheet "+name)
}

func valueRange(rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return &sheets.ValueRange{Values: values}
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// isMissingRange recognizes the 400 the API returns for a tab that does not exist.
func isMissingRange(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) &&
		gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range")
}

func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %s", op, ErrPermissionDenied, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
