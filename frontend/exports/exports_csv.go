package exports

import (
	"encoding/csv"
	"io"
	"strconv"

	"batchledger/infrastructure/ledger"
)

func WriteCSV(w io.Writer, rows []ledger.ExportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.BatchNumber,
			r.SKUCode,
			r.SKUName,
			strconv.FormatInt(r.Quantity, 10),
			r.CreatedAt.Format(dateLayout),
			r.CreatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
