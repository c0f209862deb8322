package store

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"monitorb3/internal/domain"
)

// Compile-time interface check.
var _ RowStore = (*SheetsStore)(nil)

// SheetsStore keeps rows in a Google Sheets tab: column A is the user id,
// column B the ticker. The first headerRows rows are a header and are not
// returned by ReadRows.
type SheetsStore struct {
	svc        *sheets.Service
	docID      string
	sheet      string
	headerRows int

	mu      sync.Mutex
	sheetID *int64
}

// NewSheetsStore creates a client for the tab sheet of document docID.
// credentialsFile is a service-account JSON key; when empty the default
// application credentials are used. Extra options are appended last.
func NewSheetsStore(ctx context.Context, docID, sheet, credentialsFile string, headerRows int, extra ...option.ClientOption) (*SheetsStore, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}
	if sheet == "" {
		sheet = "watchlist"
	}
	return &SheetsStore{svc: svc, docID: docID, sheet: sheet, headerRows: headerRows}, nil
}

func (s *SheetsStore) Name() string { return "sheets" }

func (s *SheetsStore) rangeA1() string { return s.sheet + "!A:B" }

// ReadRows returns every row below the header. Blank rows are kept as empty
// Rows so that indexes line up with sheet rows.
func (s *SheetsStore) ReadRows(ctx context.Context) ([]domain.Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.docID, s.rangeA1()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: reading %s: %w", s.rangeA1(), err)
	}

	var rows []domain.Row
	for i, cells := range resp.Values {
		if i < s.headerRows {
			continue
		}
		var r domain.Row
		if len(cells) > 0 {
			r.UserID = fmt.Sprint(cells[0])
		}
		if len(cells) > 1 {
			r.Ticker = domain.NormalizeTicker(fmt.Sprint(cells[1]))
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// AppendRow appends one row after the last non-empty row of the tab.
func (s *SheetsStore) AppendRow(ctx context.Context, row domain.Row) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{{row.UserID, string(row.Ticker)}}}
	_, err := s.svc.Spreadsheets.Values.Append(s.docID, s.rangeA1(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: appending row: %w", err)
	}
	return nil
}

// DeleteRow removes the sheet row holding ReadRows()[index].
func (s *SheetsStore) DeleteRow(ctx context.Context, index int) error {
	if index < 0 {
		return ErrRowIndex
	}
	sid, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	start := int64(index + s.headerRows)
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sid,
					Dimension:       "ROWS",
					StartIndex:      start,
					EndIndex:        start + 1,
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.docID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: deleting row %d: %w", index, err)
	}
	return nil
}

// resolveSheetID looks up the numeric id of the tab once; row deletion is
// addressed by id, not by title.
func (s *SheetsStore) resolveSheetID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheetID != nil {
		return *s.sheetID, nil
	}

	doc, err := s.svc.Spreadsheets.Get(s.docID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: reading document: %w", err)
	}
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheet {
			id := sh.Properties.SheetId
			s.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheets: tab %q not found", s.sheet)
}

// Close is a no-op; the HTTP client has nothing to release.
func (s *SheetsStore) Close() error { return nil }
