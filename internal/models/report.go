package models

// EmissionsSummary is the total of stored emissions over a filtered set of activities
type EmissionsSummary struct {
	TotalCO2e     float64         `json:"totalCo2e"`
	ActivityCount int             `json:"activityCount"`
	ByType        []TypeBreakdown `json:"byType"`
	Unit          string          `json:"unit"`
}

// TypeBreakdown is the share of a summary attributable to one activity type
type TypeBreakdown struct {
	ActivityType  ActivityType `json:"activityType"`
	TotalCO2e     float64      `json:"totalCo2e"`
	ActivityCount int          `json:"activityCount"`
}

// Period selects how a timeline report groups activities
type Period string

const (
	PeriodDay  Period = "day"
	PeriodWeek Period = "week"
)

// TimelineBucket is the summed emissions of the activities sharing a group key.
// For weekly buckets the key is the date of the Sunday starting that week.
type TimelineBucket struct {
	Key           string  `json:"date"`
	TotalCO2e     float64 `json:"totalCo2e"`
	ActivityCount int     `json:"activityCount"`
}
