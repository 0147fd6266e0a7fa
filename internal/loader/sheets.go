package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	apperrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
)

// sheetsRange covers every column of a sheet. Without a sheet name it
// addresses the first visible sheet.
const sheetsRange = "A:ZZZ"

// SheetsLoader reads load histories from Google Sheets spreadsheets.
type SheetsLoader struct {
	service *sheets.Service
}

// NewSheetsLoader creates a loader. Callers pass the credentials, e.g.
// option.WithCredentialsFile or option.WithAPIKey.
func NewSheetsLoader(ctx context.Context, opts ...option.ClientOption) (*SheetsLoader, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to create sheets service", err)
	}
	return &SheetsLoader{service: service}, nil
}

// Load reads the spreadsheet with the given id. Options apply as they
// do for workbooks: Sheet picks the tab, Column and SkipRows the cells.
func (l *SheetsLoader) Load(ctx context.Context, spreadsheetID string, opts Options) ([]any, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if spreadsheetID == "" {
		return nil, apperrors.NewAppValidationError("spreadsheet id is required")
	}

	rng := sheetsRange
	if opts.Sheet != "" {
		rng = fmt.Sprintf("'%s'!%s", opts.Sheet, sheetsRange)
	}

	resp, err := l.service.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("COLUMNS").
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, sheetsError(spreadsheetID, err)
	}

	cols := make([][]string, len(resp.Values))
	for c, col := range resp.Values {
		cols[c] = make([]string, len(col))
		for r, cell := range col {
			cols[c][r] = cellString(cell)
		}
	}
	return flatten(cols, opts)
}

// cellString renders an unformatted cell. Numbers arrive as float64.
func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		// Booleans are not loads; an unparseable cell is dropped later.
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func sheetsError(id string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return apperrors.NewNotFoundError(fmt.Sprintf("spreadsheet %s", id), err)
		case http.StatusBadRequest:
			return apperrors.NewAppError(apperrors.ErrTypeValidation, "invalid spreadsheet range", err)
		}
	}
	return apperrors.NewStorageError("failed to read spreadsheet", err)
}
