package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/visionqc/visionqc/pkg/models"
)

var csvHeader = []string{"id", "timestamp", "camera", "result", "confidence", "defect_type"}

// WriteCSV writes records with a header row. Timestamps are RFC 3339.
func WriteCSV(w io.Writer, records []models.InspectionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Timestamp.Format(time.RFC3339),
			rec.Camera,
			string(rec.Result),
			strconv.Itoa(rec.Confidence),
			rec.DefectType,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
