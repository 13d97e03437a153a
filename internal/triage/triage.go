// Package triage holds the pure lifecycle and aggregation logic the
// dashboard views depend on. Nothing here touches storage; callers pass
// the collection in and get derived values back.
package triage

import (
	"math"
	"time"

	"samadhan/internal/domain"
)

// UpdateStatus returns a copy of g with the new status applied and
// UpdatedAt stamped. Any status may move to any other status, including
// itself; UpdatedAt still advances on a self-transition. Values outside
// the four-status enumeration fail with InvalidStatusError and leave
// the input untouched.
func UpdateStatus(g domain.Grievance, status domain.Status, now time.Time) (domain.Grievance, error) {
	if !status.Valid() {
		return domain.Grievance{}, domain.InvalidStatusError{Status: string(status)}
	}
	g.Status = status
	g.UpdatedAt = now.UTC().Format(time.RFC3339)
	return g, nil
}

// DepartmentStats aggregates one department's workload.
type DepartmentStats struct {
	Department      domain.Department `json:"department"`
	Label           string            `json:"label"`
	Total           int               `json:"total"`
	Open            int               `json:"open"`
	Processing      int               `json:"processing"`
	Resolved        int               `json:"resolved"`
	PercentResolved int               `json:"percent_resolved"`
}

// Overall is the dashboard headline row.
type Overall struct {
	Total    int `json:"total"`
	Open     int `json:"open"`
	Resolved int `json:"resolved"`
	Critical int `json:"critical"`
}

// Stats is the full aggregate view over a grievance collection.
type Stats struct {
	Departments []DepartmentStats       `json:"departments"`
	ByPriority  map[domain.Priority]int `json:"by_priority"`
	ByStatus    map[domain.Status]int   `json:"by_status"`
	Overall     Overall                 `json:"overall"`
}

// ComputeStats derives aggregates from the current collection without
// mutating it. Departments with no grievances are excluded from the
// department breakdown. "Resolved" aggregates count both resolved and
// closed records.
func ComputeStats(grievances []domain.Grievance) Stats {
	stats := Stats{
		Departments: []DepartmentStats{},
		ByPriority:  make(map[domain.Priority]int, len(domain.Priorities)),
		ByStatus:    make(map[domain.Status]int, len(domain.Statuses)),
	}
	for _, p := range domain.Priorities {
		stats.ByPriority[p] = 0
	}
	for _, s := range domain.Statuses {
		stats.ByStatus[s] = 0
	}

	perDept := make(map[domain.Department]*DepartmentStats, len(domain.Departments))
	for _, g := range grievances {
		stats.ByPriority[g.Priority]++
		stats.ByStatus[g.Status]++
		stats.Overall.Total++
		if g.Status == domain.StatusOpen {
			stats.Overall.Open++
		}
		if settled(g.Status) {
			stats.Overall.Resolved++
		}
		if g.Priority == domain.PriorityCritical {
			stats.Overall.Critical++
		}

		d := perDept[g.Category]
		if d == nil {
			d = &DepartmentStats{Department: g.Category, Label: g.Category.Label()}
			perDept[g.Category] = d
		}
		d.Total++
		switch {
		case g.Status == domain.StatusOpen:
			d.Open++
		case g.Status == domain.StatusProcessing:
			d.Processing++
		}
		if settled(g.Status) {
			d.Resolved++
		}
	}

	// Emit departments in canonical order so output is stable.
	for _, dept := range domain.Departments {
		d, ok := perDept[dept]
		if !ok {
			continue
		}
		d.PercentResolved = percent(d.Resolved, d.Total)
		stats.Departments = append(stats.Departments, *d)
	}
	// Categories outside the canonical set still count if present.
	for dept, d := range perDept {
		if dept.Valid() {
			continue
		}
		d.PercentResolved = percent(d.Resolved, d.Total)
		stats.Departments = append(stats.Departments, *d)
	}
	return stats
}

func settled(s domain.Status) bool {
	return s == domain.StatusResolved || s == domain.StatusClosed
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
