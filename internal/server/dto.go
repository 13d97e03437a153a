package server

import (
	"samadhan/internal/domain"
	"samadhan/internal/triage"
)

// Request payloads

type SubmitGrievanceRequest struct {
	ID            *string `json:"id,omitempty"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	SubmittedBy   string  `json:"submitted_by"`
	ContactNumber string  `json:"contact_number"`
	Location      string  `json:"location"`
}

type SetStatusRequest struct {
	Status string `json:"status" enum:"open,processing,resolved,closed"`
}

type SetAssignmentRequest struct {
	AssignedTo string `json:"assigned_to"`
}

type RecordActionRequest struct {
	ActionTaken string `json:"action_taken"`
}

// Response payloads

type GrievanceResponse struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	CategoryLabel string  `json:"category_label"`
	Sentiment     string  `json:"sentiment" enum:"positive,neutral,negative"`
	Priority      string  `json:"priority" enum:"critical,high,medium,low"`
	Status        string  `json:"status" enum:"open,processing,resolved,closed"`
	SubmittedBy   string  `json:"submitted_by"`
	ContactNumber string  `json:"contact_number"`
	Location      string  `json:"location"`
	Summary       string  `json:"summary,omitempty"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
	ActionTaken   *string `json:"action_taken,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type SuggestionsResponse struct {
	GrievanceID string   `json:"grievance_id"`
	Suggestions []string `json:"suggestions"`
}

type DepartmentResponse struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	DefaultAssignee string `json:"default_assignee,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type StatsResponse struct {
	Departments []triage.DepartmentStats `json:"departments"`
	ByPriority  map[string]int           `json:"by_priority"`
	ByStatus    map[string]int           `json:"by_status"`
	Overall     triage.Overall           `json:"overall"`
}

type paginatedGrievances struct {
	Items      []GrievanceResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// Conversion helpers

func grievanceResponse(g domain.Grievance, label func(domain.Department) string) GrievanceResponse {
	return GrievanceResponse{
		ID:            g.ID,
		Title:         g.Title,
		Description:   g.Description,
		Category:      string(g.Category),
		CategoryLabel: label(g.Category),
		Sentiment:     string(g.Sentiment),
		Priority:      string(g.Priority),
		Status:        string(g.Status),
		SubmittedBy:   g.SubmittedBy,
		ContactNumber: g.ContactNumber,
		Location:      g.Location,
		Summary:       g.Summary,
		AssignedTo:    g.AssignedTo,
		ActionTaken:   g.ActionTaken,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

func statsResponse(s triage.Stats) StatsResponse {
	resp := StatsResponse{
		Departments: s.Departments,
		ByPriority:  make(map[string]int, len(s.ByPriority)),
		ByStatus:    make(map[string]int, len(s.ByStatus)),
		Overall:     s.Overall,
	}
	for p, n := range s.ByPriority {
		resp.ByPriority[string(p)] = n
	}
	for st, n := range s.ByStatus {
		resp.ByStatus[string(st)] = n
	}
	return resp
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}
