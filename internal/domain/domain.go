package domain

// Sentiment is the coarse emotional tone of complaint text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Priority is the urgency ranking driving triage order.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Status is the workflow stage of a grievance.
type Status string

const (
	StatusOpen       Status = "open"
	StatusProcessing Status = "processing"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Department is the administrative unit a grievance is routed to.
type Department string

const (
	DeptWaterSupply    Department = "water_supply"
	DeptElectricity    Department = "electricity"
	DeptSanitation     Department = "sanitation"
	DeptRoads          Department = "roads"
	DeptHealthcare     Department = "healthcare"
	DeptEducation      Department = "education"
	DeptLawEnforcement Department = "law_enforcement"
	DeptHousing        Department = "housing"
	DeptAgriculture    Department = "agriculture"
	DeptOther          Department = "other"
)

// Statuses lists every valid workflow status in display order.
var Statuses = []Status{StatusOpen, StatusProcessing, StatusResolved, StatusClosed}

// Priorities lists every priority level, most urgent first.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Departments lists every routing department. The order matches the
// classifier's keyword-group evaluation order, with the fallback last.
var Departments = []Department{
	DeptWaterSupply,
	DeptElectricity,
	DeptSanitation,
	DeptRoads,
	DeptHealthcare,
	DeptEducation,
	DeptLawEnforcement,
	DeptHousing,
	DeptAgriculture,
	DeptOther,
}

var departmentLabels = map[Department]string{
	DeptWaterSupply:    "Water Supply Department",
	DeptElectricity:    "Electricity Department",
	DeptSanitation:     "Sanitation Department",
	DeptRoads:          "Public Works Department",
	DeptHealthcare:     "Health Department",
	DeptEducation:      "Education Department",
	DeptLawEnforcement: "Police Department",
	DeptHousing:        "Housing & Urban Development",
	DeptAgriculture:    "Agriculture Department",
	DeptOther:          "Other Departments",
}

// Label returns the human-readable department name. Unknown values
// resolve to a fixed fallback rather than failing.
func (d Department) Label() string {
	if label, ok := departmentLabels[d]; ok {
		return label
	}
	return "Unknown Department"
}

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusProcessing, StatusResolved, StatusClosed:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

func (d Department) Valid() bool {
	_, ok := departmentLabels[d]
	return ok
}

// Grievance is a citizen-submitted complaint record with classification
// and workflow metadata. Classification fields are set by the classifier
// before the record is accepted; workflow fields mutate through status
// updates only.
type Grievance struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      Department `json:"category"`
	Sentiment     Sentiment  `json:"sentiment" enum:"positive,neutral,negative"`
	Priority      Priority   `json:"priority" enum:"critical,high,medium,low"`
	Status        Status     `json:"status" enum:"open,processing,resolved,closed"`
	SubmittedBy   string     `json:"submitted_by"`
	ContactNumber string     `json:"contact_number"`
	Location      string     `json:"location"`
	Summary       string     `json:"summary,omitempty"`
	AssignedTo    *string    `json:"assigned_to,omitempty"`
	ActionTaken   *string    `json:"action_taken,omitempty"`
	CreatedAt     string     `json:"created_at" format:"date-time"`
	UpdatedAt     string     `json:"updated_at" format:"date-time"`
}

// Event is one entry in the append-only change log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey identifies a service client allowed to call the API.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
