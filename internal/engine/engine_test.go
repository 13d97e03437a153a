package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"samadhan/internal/classify"
	"samadhan/internal/config"
	"samadhan/internal/db"
	"samadhan/internal/domain"
	"samadhan/internal/engine"
	"samadhan/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("samadhan"))
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func submitOpts(desc string) engine.SubmitOptions {
	return engine.SubmitOptions{
		Title:         "Test grievance",
		Description:   desc,
		SubmittedBy:   "Rajesh Kumar",
		ContactNumber: "9876543210",
		Location:      "Gomti Nagar, Lucknow",
		ActorID:       "tester",
	}
}

func TestSubmitClassifiesAndStores(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.Submit(env.Ctx, submitOpts("urgent water leakage emergency near the school"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if g.ID == "" {
		t.Fatalf("expected generated id")
	}
	if g.Category != domain.DeptWaterSupply {
		t.Fatalf("category = %s, want water_supply", g.Category)
	}
	if g.Priority != domain.PriorityCritical {
		t.Fatalf("priority = %s, want critical", g.Priority)
	}
	if g.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want open", g.Status)
	}
	if g.CreatedAt != "2024-01-01T00:00:00Z" || g.UpdatedAt != g.CreatedAt {
		t.Fatalf("timestamps: %s / %s", g.CreatedAt, g.UpdatedAt)
	}

	stored, err := env.Engine.Repo.GetGrievance(env.Ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Category != g.Category || stored.Priority != g.Priority {
		t.Fatalf("stored classification differs: %+v", stored)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	opts := submitOpts("the pipe is broken")
	opts.ContactNumber = "   "
	_, err := env.Engine.Submit(env.Ctx, opts)
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Field != "contact_number" {
		t.Fatalf("field = %q", ve.Field)
	}
}

type failingClassifier struct{}

func (failingClassifier) Classify(ctx context.Context, text string) (classify.Result, error) {
	return classify.Result{}, errors.New("backend unavailable")
}

func TestSubmitClassifierFailureRejectsRecord(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Classifier = failingClassifier{}
	_, err := env.Engine.Submit(env.Ctx, submitOpts("anything"))
	var ce domain.ClassificationError
	if !errors.As(err, &ce) {
		t.Fatalf("want ClassificationError, got %v", err)
	}
	// No partial record may exist.
	all, err := env.Engine.Repo.AllGrievances(env.Ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d records", len(all))
	}
}

func TestStatusLifecycleAndEvents(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.Submit(env.Ctx, submitOpts("water supply is broken in our area"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	g, err = env.Engine.SetStatus(env.Ctx, g.ID, domain.StatusProcessing, "officer-1")
	if err != nil || g.Status != domain.StatusProcessing {
		t.Fatalf("to processing: %v", err)
	}
	g, err = env.Engine.SetStatus(env.Ctx, g.ID, domain.StatusResolved, "officer-1")
	if err != nil || g.Status != domain.StatusResolved {
		t.Fatalf("to resolved: %v", err)
	}
	// Reversion is allowed and logged like any other change.
	g, err = env.Engine.SetStatus(env.Ctx, g.ID, domain.StatusOpen, "officer-1")
	if err != nil || g.Status != domain.StatusOpen {
		t.Fatalf("reopen: %v", err)
	}

	_, err = env.Engine.SetStatus(env.Ctx, g.ID, domain.Status("bogus"), "officer-1")
	var ise domain.InvalidStatusError
	if !errors.As(err, &ise) {
		t.Fatalf("want InvalidStatusError, got %v", err)
	}
	stored, _ := env.Engine.Repo.GetGrievance(env.Ctx, g.ID)
	if stored.Status != domain.StatusOpen {
		t.Fatalf("invalid update must not mutate, status = %s", stored.Status)
	}

	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "grievance.status.updated", "", g.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d status events, want 3", len(events))
	}
}

func TestAssignAndRecordAction(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.Submit(env.Ctx, submitOpts("garbage is piling up on the street"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	g, err = env.Engine.Assign(env.Ctx, g.ID, "Sanitation Division", "admin-1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if g.AssignedTo == nil || *g.AssignedTo != "Sanitation Division" {
		t.Fatalf("assigned_to = %v", g.AssignedTo)
	}

	g, err = env.Engine.Assign(env.Ctx, g.ID, "", "admin-1")
	if err != nil {
		t.Fatalf("clear assignment: %v", err)
	}
	if g.AssignedTo != nil {
		t.Fatalf("assignment not cleared: %v", *g.AssignedTo)
	}

	_, err = env.Engine.RecordAction(env.Ctx, g.ID, "  ", "admin-1")
	var ve domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("blank action must fail validation, got %v", err)
	}
	g, err = env.Engine.RecordAction(env.Ctx, g.ID, "Crew dispatched", "admin-1")
	if err != nil || g.ActionTaken == nil || *g.ActionTaken != "Crew dispatched" {
		t.Fatalf("record action: %v, %v", err, g.ActionTaken)
	}
}

func TestReclassifyKeepsWorkflowFields(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.Submit(env.Ctx, submitOpts("power outage every day this week"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.Engine.SetStatus(env.Ctx, g.ID, domain.StatusProcessing, "officer-1"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	updated, err := env.Engine.Reclassify(env.Ctx, g.ID, "admin-1")
	if err != nil {
		t.Fatalf("reclassify: %v", err)
	}
	if updated.Status != domain.StatusProcessing {
		t.Fatalf("status changed by reclassify: %s", updated.Status)
	}
	if updated.Category != domain.DeptElectricity {
		t.Fatalf("category = %s, want electricity", updated.Category)
	}
}

func TestSimilarSharesDepartment(t *testing.T) {
	env := newTestEnv(t)
	a, err := env.Engine.Submit(env.Ctx, submitOpts("no water supply for days"))
	if err != nil {
		t.Fatalf("submit a: %v", err)
	}
	b, err := env.Engine.Submit(env.Ctx, submitOpts("tap water is muddy"))
	if err != nil {
		t.Fatalf("submit b: %v", err)
	}
	if _, err := env.Engine.Submit(env.Ctx, submitOpts("pothole on the main street")); err != nil {
		t.Fatalf("submit c: %v", err)
	}

	similar, err := env.Engine.Similar(env.Ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(similar) != 1 || similar[0].ID != b.ID {
		t.Fatalf("similar = %v", similar)
	}
}

func TestStatsEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.Submit(env.Ctx, submitOpts("urgent water leakage emergency, pipe is broken"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := env.Engine.SetStatus(env.Ctx, g.ID, domain.StatusResolved, "officer-1"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	stats, err := env.Engine.Stats(env.Ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Overall.Total != 1 || stats.Overall.Resolved != 1 || stats.Overall.Critical != 1 {
		t.Fatalf("overall = %+v", stats.Overall)
	}
	if len(stats.Departments) != 1 {
		t.Fatalf("departments = %v", stats.Departments)
	}
	dept := stats.Departments[0]
	if dept.Department != domain.DeptWaterSupply || dept.PercentResolved != 100 {
		t.Fatalf("dept = %+v", dept)
	}
	if dept.Label != "Water Supply Department" {
		t.Fatalf("label = %q", dept.Label)
	}
}

func TestStatsEmptyCollection(t *testing.T) {
	env := newTestEnv(t)
	stats, err := env.Engine.Stats(env.Ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Overall.Total != 0 || len(stats.Departments) != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
