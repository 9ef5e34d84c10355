// Package history produces the inspection records shown on the history
// screen and the filters and exports applied to them.
package history

import (
	"fmt"
	"time"

	"github.com/visionqc/visionqc/internal/random"
	"github.com/visionqc/visionqc/pkg/models"
)

const (
	// DefaultRecords is the number of records the history screen lists.
	DefaultRecords = 12

	// DefectBottleDamage is the defect recorded on every failed item.
	DefectBottleDamage = "瓶身破损"

	failEvery      = 8
	minConfidence  = 80
	confidenceSpan = 20
)

// StationLabel returns the camera label of the given 1-based station.
func StationLabel(n int) string {
	return fmt.Sprintf("工位%d", n)
}

// Generate returns n mock records, newest first, one hour apart ending at
// now. Every eighth record, starting with the first, fails with a bottle
// damage defect.
func Generate(now time.Time, n int, rnd random.Source) []models.InspectionRecord {
	if rnd == nil {
		rnd = random.New(0)
	}
	records := make([]models.InspectionRecord, 0, n)
	for i := 0; i < n; i++ {
		rec := models.InspectionRecord{
			ID:         fmt.Sprintf("detect_%d_%d", now.UnixMilli(), i),
			Timestamp:  now.Add(-time.Duration(i) * time.Hour),
			Camera:     StationLabel(i%2 + 1),
			Result:     models.ResultPass,
			Confidence: rnd.IntN(confidenceSpan) + minConfidence,
		}
		if i%failEvery == 0 {
			rec.Result = models.ResultFail
			rec.DefectType = DefectBottleDamage
		}
		records = append(records, rec)
	}
	return records
}
