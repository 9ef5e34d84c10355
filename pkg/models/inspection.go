package models

import "time"

// InspectionResult is the verdict recorded for one inspected item.
type InspectionResult string

const (
	ResultPass InspectionResult = "合格"
	ResultFail InspectionResult = "不合格"
)

// InspectionRecord is one entry of the detection history.
type InspectionRecord struct {
	ID         string           `json:"id" yaml:"id"`
	Timestamp  time.Time        `json:"timestamp" yaml:"timestamp"`
	Camera     string           `json:"camera" yaml:"camera"`
	Result     InspectionResult `json:"result" yaml:"result"`
	Confidence int              `json:"confidence" yaml:"confidence"`
	DefectType string           `json:"defect_type,omitempty" yaml:"defect_type,omitempty"`
}

// Passed reports whether the record is a pass verdict.
func (r InspectionRecord) Passed() bool {
	return r.Result == ResultPass
}
