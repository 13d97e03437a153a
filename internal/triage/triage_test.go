package triage

import (
	"errors"
	"testing"
	"time"

	"samadhan/internal/domain"
)

func TestUpdateStatusPermissive(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	g := domain.Grievance{ID: "g1", Status: domain.StatusClosed, UpdatedAt: "2024-01-01T00:00:00Z"}

	// Reopening a closed grievance is allowed.
	updated, err := UpdateStatus(g, domain.StatusOpen, now)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if updated.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want open", updated.Status)
	}
	if updated.UpdatedAt != "2024-06-01T12:00:00Z" {
		t.Fatalf("updated_at = %s", updated.UpdatedAt)
	}
	// Input is not mutated.
	if g.Status != domain.StatusClosed {
		t.Fatalf("input mutated to %s", g.Status)
	}
}

func TestUpdateStatusSelfTransitionStampsTime(t *testing.T) {
	now := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	g := domain.Grievance{Status: domain.StatusOpen, UpdatedAt: "2024-01-01T00:00:00Z"}
	updated, err := UpdateStatus(g, domain.StatusOpen, now)
	if err != nil {
		t.Fatalf("self transition: %v", err)
	}
	if updated.UpdatedAt == g.UpdatedAt {
		t.Fatalf("updated_at must advance on a self-transition")
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	g := domain.Grievance{Status: domain.StatusOpen}
	_, err := UpdateStatus(g, domain.Status("archived"), time.Now())
	var ise domain.InvalidStatusError
	if !errors.As(err, &ise) {
		t.Fatalf("want InvalidStatusError, got %v", err)
	}
	if ise.Status != "archived" {
		t.Fatalf("error carries %q", ise.Status)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil)
	if len(stats.Departments) != 0 {
		t.Fatalf("departments = %v, want empty", stats.Departments)
	}
	if stats.Overall != (Overall{}) {
		t.Fatalf("overall = %+v, want zeros", stats.Overall)
	}
	for _, p := range domain.Priorities {
		if n, ok := stats.ByPriority[p]; !ok || n != 0 {
			t.Fatalf("by_priority[%s] = %d, %v", p, n, ok)
		}
	}
	for _, s := range domain.Statuses {
		if n, ok := stats.ByStatus[s]; !ok || n != 0 {
			t.Fatalf("by_status[%s] = %d, %v", s, n, ok)
		}
	}
}

func TestComputeStatsAggregates(t *testing.T) {
	grievances := []domain.Grievance{
		{Category: domain.DeptWaterSupply, Status: domain.StatusOpen, Priority: domain.PriorityCritical},
		{Category: domain.DeptWaterSupply, Status: domain.StatusResolved, Priority: domain.PriorityHigh},
		{Category: domain.DeptRoads, Status: domain.StatusClosed, Priority: domain.PriorityMedium},
		{Category: domain.DeptRoads, Status: domain.StatusProcessing, Priority: domain.PriorityHigh},
		{Category: domain.DeptRoads, Status: domain.StatusOpen, Priority: domain.PriorityLow},
	}
	stats := ComputeStats(grievances)

	if stats.Overall.Total != 5 || stats.Overall.Open != 2 || stats.Overall.Resolved != 2 || stats.Overall.Critical != 1 {
		t.Fatalf("overall = %+v", stats.Overall)
	}
	if stats.ByPriority[domain.PriorityHigh] != 2 {
		t.Fatalf("by_priority[high] = %d", stats.ByPriority[domain.PriorityHigh])
	}
	if stats.ByStatus[domain.StatusOpen] != 2 || stats.ByStatus[domain.StatusClosed] != 1 {
		t.Fatalf("by_status = %v", stats.ByStatus)
	}

	if len(stats.Departments) != 2 {
		t.Fatalf("departments = %v", stats.Departments)
	}
	// Canonical ordering: water_supply precedes roads.
	water, roads := stats.Departments[0], stats.Departments[1]
	if water.Department != domain.DeptWaterSupply || roads.Department != domain.DeptRoads {
		t.Fatalf("department order: %s, %s", water.Department, roads.Department)
	}
	if water.Total != 2 || water.Open != 1 || water.Resolved != 1 || water.PercentResolved != 50 {
		t.Fatalf("water = %+v", water)
	}
	// Closed counts toward the resolved aggregate: 1 of 3 rounds to 33.
	if roads.Total != 3 || roads.Processing != 1 || roads.Resolved != 1 || roads.PercentResolved != 33 {
		t.Fatalf("roads = %+v", roads)
	}
	if water.Label != "Water Supply Department" {
		t.Fatalf("water label = %q", water.Label)
	}
}

func TestComputeStatsUnknownCategoryStillCounts(t *testing.T) {
	stats := ComputeStats([]domain.Grievance{
		{Category: domain.Department("legacy"), Status: domain.StatusResolved, Priority: domain.PriorityLow},
	})
	if len(stats.Departments) != 1 {
		t.Fatalf("departments = %v", stats.Departments)
	}
	d := stats.Departments[0]
	if d.Department != "legacy" || d.PercentResolved != 100 {
		t.Fatalf("legacy dept = %+v", d)
	}
	if d.Label != "Unknown Department" {
		t.Fatalf("label = %q", d.Label)
	}
}
