package exports

import (
	"context"
	"time"

	"batchledger/infrastructure/ledger"
)

// Format is a served export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Source provides the rows of an export and the reference clock.
type Source interface {
	ExportRange(ctx context.Context, r ledger.DateRange) ([]ledger.ExportRow, error)
	Now() time.Time
	Location() *time.Location
}

// LabelSource resolves the batch a label is printed for.
type LabelSource interface {
	FindByNumber(ctx context.Context, batchNumber string) (ledger.Entry, error)
	Now() time.Time
	Location() *time.Location
}

// Header is the column layout shared by every tabular export.
var Header = []string{"Batch Number", "SKU Code", "SKU Name", "Quantity", "Created Date", "Created Time"}

const (
	SheetName  = "Batches"
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Filename names an export of r: batches_<start>.<ext> for one day,
// batches_<start>_to_<end>.<ext> otherwise.
func Filename(r ledger.DateRange, f Format) string {
	if r.SingleDay() {
		return "batches_" + r.Start.String() + "." + string(f)
	}
	return "batches_" + r.Start.String() + "_to_" + r.End.String() + "." + string(f)
}

// BatchLabel is what a printed batch label shows.
type BatchLabel struct {
	BatchNumber string
	SKUCode     string
	SKUName     string
	Quantity    int64
	CreatedAt   time.Time
}
