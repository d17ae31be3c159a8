package health

import "time"

// Report is the JSON form of a CheckAll run.
type Report struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckReport `json:"checks,omitempty"`
}

// CheckReport is the JSON form of one Result.
type CheckReport struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Error    string         `json:"error,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Report builds a Report from results, listing checks in registration order.
// Results for names the aggregator does not know are omitted.
func (a *Aggregator) Report(results map[string]Result) Report {
	report := Report{
		Status:    OverallStatus(results).String(),
		Timestamp: time.Now().UTC(),
	}

	for _, name := range a.CheckerNames() {
		result, ok := results[name]
		if !ok {
			continue
		}
		cr := CheckReport{
			Name:     name,
			Status:   result.Status.String(),
			Message:  result.Message,
			Duration: result.Duration.String(),
			Details:  result.Details,
		}
		if result.Error != nil {
			cr.Error = result.Error.Error()
		}
		report.Checks = append(report.Checks, cr)
	}

	return report
}
