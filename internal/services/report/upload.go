package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"amlguard/internal/models"
	"amlguard/internal/services/risk"
	"amlguard/internal/services/transaction"
	"amlguard/internal/validation"
)

// Upload formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// MaxUploadRows bounds a single upload.
const MaxUploadRows = 10000

var (
	ErrEmptyUpload       = errors.New("upload contains no transactions")
	ErrMalformedUpload   = errors.New("upload could not be parsed")
	ErrMissingColumns    = errors.New("upload is missing required columns")
	ErrUnsupportedFormat = errors.New("unsupported upload format")
	ErrTooManyRows       = fmt.Errorf("upload exceeds %d rows", MaxUploadRows)
)

var requiredColumns = []string{"date", "from_account", "to_account", "amount", "description"}

// RowError describes one rejected row. Row numbers count the header as row 1.
type RowError struct {
	Row     int               `json:"row"`
	ID      string            `json:"id,omitempty"`
	Message string            `json:"message"`
	Fields  validation.Errors `json:"fields,omitempty"`
}

// UploadResult summarizes an upload.
type UploadResult struct {
	Created  int                 `json:"created"`
	Failed   int                 `json:"failed"`
	ByStatus map[risk.Status]int `json:"by_status"`
	Errors   []RowError          `json:"errors"`
}

func newUploadResult() *UploadResult {
	return &UploadResult{
		ByStatus: map[risk.Status]int{
			risk.StatusNormal:     0,
			risk.StatusSuspicious: 0,
			risk.StatusFlagged:    0,
		},
		Errors: []RowError{},
	}
}

// FormatFromFilename picks the upload format from a file extension.
func FormatFromFilename(name string) (string, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Upload ingests every row through the transaction service. Rows failing
// validation or colliding with an existing id are reported and skipped;
// any other error aborts the upload.
func (s *Service) Upload(ctx context.Context, r io.Reader, format string) (*UploadResult, error) {
	var (
		result *UploadResult
		err    error
	)
	switch format {
	case FormatCSV:
		result, err = s.uploadCSV(ctx, r)
	case FormatJSON:
		result, err = s.uploadJSON(ctx, r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if result != nil {
		s.metrics.ObserveUploadRows(result.Created, result.Failed)
		log.Ctx(ctx).Info().
			Str("format", format).
			Int("created", result.Created).
			Int("failed", result.Failed).
			Msg("upload processed")
	}
	return result, err
}

func (s *Service) uploadCSV(ctx context.Context, r io.Reader) (*UploadResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedUpload, err)
	}
	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	result := newUploadResult()
	for row := 2; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if row-1 > MaxUploadRows {
			return result, ErrTooManyRows
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.reject(RowError{Row: row, Message: parseErr.Err.Error()})
				continue
			}
			return result, fmt.Errorf("read row %d: %w", row, err)
		}

		in, rowErr := columns.input(record)
		if rowErr != nil {
			rowErr.Row = row
			result.reject(*rowErr)
			continue
		}
		if err := s.ingest(ctx, result, row, in); err != nil {
			return result, err
		}
	}

	if result.Created == 0 && result.Failed == 0 {
		return result, ErrEmptyUpload
	}
	return result, nil
}

func (s *Service) uploadJSON(ctx context.Context, r io.Reader) (*UploadResult, error) {
	var inputs []models.TransactionInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedUpload, err)
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyUpload
	}
	if len(inputs) > MaxUploadRows {
		return nil, ErrTooManyRows
	}

	result := newUploadResult()
	for i := range inputs {
		in := &inputs[i]
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		// JSON rows count from 1 with no header
		if err := s.ingest(ctx, result, i+1, in); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Service) ingest(ctx context.Context, result *UploadResult, row int, in *models.TransactionInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.transactions.Create(ctx, in)
	if err == nil {
		result.Created++
		result.ByStatus[tx.Status]++
		return nil
	}

	if errs, ok := validation.AsErrors(err); ok {
		result.reject(RowError{Row: row, ID: in.ID, Message: "validation failed", Fields: errs})
		return nil
	}
	if errors.Is(err, transaction.ErrDuplicateTransaction) {
		result.reject(RowError{Row: row, ID: in.ID, Message: "transaction already exists"})
		return nil
	}
	return fmt.Errorf("row %d: %w", row, err)
}

func (r *UploadResult) reject(e RowError) {
	r.Failed++
	r.Errors = append(r.Errors, e)
}

type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	columns := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return columns, nil
}

func (c columnIndex) value(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columnIndex) input(record []string) (*models.TransactionInput, *RowError) {
	id := c.value(record, "id")
	if id == "" {
		id = uuid.NewString()
	}

	amount, err := decimal.NewFromString(c.value(record, "amount"))
	if err != nil {
		return nil, &RowError{
			ID:      id,
			Message: "validation failed",
			Fields:  validation.Errors{"amount": "must be a decimal number"},
		}
	}

	description := c.value(record, "description")
	return &models.TransactionInput{
		ID:          id,
		Date:        c.value(record, "date"),
		FromAccount: c.value(record, "from_account"),
		ToAccount:   c.value(record, "to_account"),
		Amount:      &amount,
		Description: &description,
	}, nil
}
