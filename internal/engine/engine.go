package engine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"samadhan/internal/classify"
	"samadhan/internal/config"
	"samadhan/internal/domain"
	"samadhan/internal/events"
	"samadhan/internal/repo"
	"samadhan/internal/triage"
)

// Engine owns the grievance collection and orchestrates intake,
// classification, lifecycle updates, and aggregation. It is stateless
// apart from the explicit store; every mutation is transactional and
// either fully applies or not at all.
type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Config     *config.Config
	Classifier classify.Classifier
	Suggester  classify.Suggester
	Now        func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:         db,
		Repo:       repo.Repo{DB: db},
		Events:     events.Writer{DB: db},
		Config:     cfg,
		Classifier: classify.KeywordClassifier{},
		Suggester:  classify.RuleSuggester{},
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SubmitOptions are parameters for submitting a grievance.
type SubmitOptions struct {
	ID            string
	Title         string
	Description   string
	SubmittedBy   string
	ContactNumber string
	Location      string
	ActorID       string
}

func (opts SubmitOptions) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", opts.Title},
		{"description", opts.Description},
		{"submitted_by", opts.SubmittedBy},
		{"contact_number", opts.ContactNumber},
		{"location", opts.Location},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return domain.ValidationError{Field: f.name}
		}
	}
	return nil
}

// Submit validates the intake fields, classifies the description, and
// stores the grievance. A record is never accepted without a complete
// classification; if the classifier fails the submission fails and no
// state changes.
func (e Engine) Submit(ctx context.Context, opts SubmitOptions) (domain.Grievance, error) {
	if err := opts.validate(); err != nil {
		return domain.Grievance{}, err
	}
	result, err := e.Classifier.Classify(ctx, opts.Description)
	if err != nil {
		return domain.Grievance{}, domain.ClassificationError{Err: err}
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now().UTC().Format(time.RFC3339)
	g := domain.Grievance{
		ID:            id,
		Title:         opts.Title,
		Description:   opts.Description,
		Category:      result.Category,
		Sentiment:     result.Sentiment,
		Priority:      result.Priority,
		Status:        domain.StatusOpen,
		SubmittedBy:   opts.SubmittedBy,
		ContactNumber: opts.ContactNumber,
		Location:      opts.Location,
		Summary:       result.Summary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if e.Config != nil {
		if assignee := e.Config.DefaultAssignee(g.Category); assignee != "" {
			g.AssignedTo = &assignee
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertGrievance(ctx, tx, g); err != nil {
		return domain.Grievance{}, err
	}
	if err := e.Events.Append(ctx, tx, "grievance.submitted", "grievance", g.ID, opts.ActorID, events.EventPayload{
		"category":  g.Category,
		"priority":  g.Priority,
		"sentiment": g.Sentiment,
	}); err != nil {
		return domain.Grievance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, err
	}
	return g, nil
}

// SetStatus moves a grievance to the given workflow status. The state
// machine is deliberately permissive: any status may follow any other,
// and the event log records reversions.
func (e Engine) SetStatus(ctx context.Context, id string, status domain.Status, actorID string) (domain.Grievance, error) {
	g, err := e.Repo.GetGrievance(ctx, id)
	if err != nil {
		return domain.Grievance{}, err
	}
	updated, err := triage.UpdateStatus(g, status, e.now())
	if err != nil {
		return domain.Grievance{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateGrievance(ctx, tx, updated); err != nil {
		return domain.Grievance{}, err
	}
	if err := e.Events.Append(ctx, tx, "grievance.status.updated", "grievance", g.ID, actorID, events.EventPayload{
		"from": g.Status,
		"to":   updated.Status,
	}); err != nil {
		return domain.Grievance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, err
	}
	return updated, nil
}

// Assign sets or clears the officer handling a grievance.
func (e Engine) Assign(ctx context.Context, id, assignee, actorID string) (domain.Grievance, error) {
	g, err := e.Repo.GetGrievance(ctx, id)
	if err != nil {
		return domain.Grievance{}, err
	}
	if strings.TrimSpace(assignee) == "" {
		g.AssignedTo = nil
	} else {
		g.AssignedTo = &assignee
	}
	g.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateGrievance(ctx, tx, g); err != nil {
		return domain.Grievance{}, err
	}
	if err := e.Events.Append(ctx, tx, "grievance.assigned", "grievance", g.ID, actorID, events.EventPayload{
		"assigned_to": assignee,
	}); err != nil {
		return domain.Grievance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, err
	}
	return g, nil
}

// RecordAction notes the action taken on a grievance.
func (e Engine) RecordAction(ctx context.Context, id, action, actorID string) (domain.Grievance, error) {
	if strings.TrimSpace(action) == "" {
		return domain.Grievance{}, domain.ValidationError{Field: "action_taken"}
	}
	g, err := e.Repo.GetGrievance(ctx, id)
	if err != nil {
		return domain.Grievance{}, err
	}
	g.ActionTaken = &action
	g.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateGrievance(ctx, tx, g); err != nil {
		return domain.Grievance{}, err
	}
	if err := e.Events.Append(ctx, tx, "grievance.action.recorded", "grievance", g.ID, actorID, events.EventPayload{
		"action_taken": action,
	}); err != nil {
		return domain.Grievance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, err
	}
	return g, nil
}

// Reclassify re-runs the classifier over the stored description and
// replaces the classification fields. Workflow fields are untouched.
func (e Engine) Reclassify(ctx context.Context, id, actorID string) (domain.Grievance, error) {
	g, err := e.Repo.GetGrievance(ctx, id)
	if err != nil {
		return domain.Grievance{}, err
	}
	result, err := e.Classifier.Classify(ctx, g.Description)
	if err != nil {
		return domain.Grievance{}, domain.ClassificationError{Err: err}
	}
	previous := g.Category
	g.Category = result.Category
	g.Sentiment = result.Sentiment
	g.Priority = result.Priority
	g.Summary = result.Summary
	g.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Grievance{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateGrievance(ctx, tx, g); err != nil {
		return domain.Grievance{}, err
	}
	if err := e.Events.Append(ctx, tx, "grievance.reclassified", "grievance", g.ID, actorID, events.EventPayload{
		"from_category": previous,
		"to_category":   g.Category,
		"priority":      g.Priority,
		"sentiment":     g.Sentiment,
	}); err != nil {
		return domain.Grievance{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Grievance{}, err
	}
	return g, nil
}

// Suggestions returns ordered handling advisories for a grievance.
func (e Engine) Suggestions(ctx context.Context, id string) ([]string, error) {
	g, err := e.Repo.GetGrievance(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Suggester.Suggest(ctx, g)
}

// Similar returns other grievances routed to the same department.
func (e Engine) Similar(ctx context.Context, id string, limit int) ([]domain.Grievance, error) {
	g, err := e.Repo.GetGrievance(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.Repo.SimilarGrievances(ctx, g.Category, g.ID, limit)
}

// Stats computes the aggregate dashboard view over the full collection.
func (e Engine) Stats(ctx context.Context) (triage.Stats, error) {
	all, err := e.Repo.AllGrievances(ctx)
	if err != nil {
		return triage.Stats{}, err
	}
	stats := triage.ComputeStats(all)
	if e.Config != nil {
		for i := range stats.Departments {
			stats.Departments[i].Label = e.Config.Label(stats.Departments[i].Department)
		}
	}
	return stats, nil
}
