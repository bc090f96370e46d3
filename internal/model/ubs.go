package model

import (
	"strings"
	"time"
)

// UBSStatus is the submission state of a situational diagnosis.
type UBSStatus string

const (
	UBSDraft     UBSStatus = "DRAFT"
	UBSSubmitted UBSStatus = "SUBMITTED"
)

// UBS is the root of a unit's situational diagnosis.  Rows are owned by the
// account that created them (OwnerID) and soft-deleted via IsDeleted.
//
// Counts are pointers so that a draft can leave them unset; submission
// requires them.
type UBS struct {
	ID                 uint64     `json:"id"`                  // ubs.id
	OwnerID            uint64     `json:"-"`                   // ubs.owner_id
	Name               string     `json:"name"`                // ubs.name
	ReportName         *string    `json:"report_name"`         // ubs.report_name
	CNES               string     `json:"cnes"`                // ubs.cnes
	CoverageArea       string     `json:"coverage_area"`       // ubs.coverage_area
	ActiveResidents    *int       `json:"active_residents"`    // ubs.active_residents
	Microareas         *int       `json:"microareas"`          // ubs.microareas
	RegisteredFamilies *int       `json:"registered_families"` // ubs.registered_families
	Households         *int       `json:"households"`          // ubs.households
	RuralHouseholds    *int       `json:"rural_households"`    // ubs.rural_households
	InauguratedOn      *time.Time `json:"inaugurated_on"`      // ubs.inaugurated_on (DATE)
	LastRenovatedOn    *time.Time `json:"last_renovated_on"`   // ubs.last_renovated_on (DATE)
	Description        *string    `json:"description"`         // ubs.description
	Notes              *string    `json:"notes"`               // ubs.notes
	OtherServices      *string    `json:"other_services"`      // ubs.other_services
	Status             UBSStatus  `json:"status"`              // ubs.status
	SubmittedAt        *time.Time `json:"submitted_at"`        // ubs.submitted_at
	SubmittedBy        *uint64    `json:"submitted_by"`        // ubs.submitted_by
	IsDeleted          bool       `json:"-"`                   // ubs.is_deleted
	CreatedAt          time.Time  `json:"created_at"`          // ubs.created_at
	UpdatedAt          time.Time  `json:"updated_at"`          // ubs.updated_at
}

// TerritoryProfile describes the territory served by a unit (one per UBS).
type TerritoryProfile struct {
	ID              uint64  `json:"id"`
	UBSID           uint64  `json:"ubs_id"`
	Description     string  `json:"description"`
	Strengths       *string `json:"strengths"`
	Vulnerabilities *string `json:"vulnerabilities"`
}

// UBSNeeds lists the problems and needs identified for a unit (one per UBS).
type UBSNeeds struct {
	ID                  uint64  `json:"id"`
	UBSID               uint64  `json:"ubs_id"`
	IdentifiedProblems  string  `json:"identified_problems"`
	EquipmentNeeds      *string `json:"equipment_needs"`
	AgentNeeds          *string `json:"agent_needs"`
	InfrastructureNeeds *string `json:"infrastructure_needs"`
}

// FieldError is one validation failure reported back to the client.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Problem is a GUT-prioritised problem of a unit.  Score is always
// Gravity*Urgency*Tendency and is recomputed on every write.
type Problem struct {
	ID          uint64    `json:"id"`
	UBSID       uint64    `json:"ubs_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Gravity     int       `json:"gut_gravity"`
	Urgency     int       `json:"gut_urgency"`
	Tendency    int       `json:"gut_tendency"`
	Score       int       `json:"gut_score"`
	IsPriority  bool      `json:"is_priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GUT dimension bounds.
const (
	GUTMin = 1
	GUTMax = 5
)

// GUTScore returns gravity × urgency × tendency.
func GUTScore(gravity, urgency, tendency int) int {
	return gravity * urgency * tendency
}

// ValidGUT reports whether v is a valid GUT dimension value.
func ValidGUT(v int) bool { return v >= GUTMin && v <= GUTMax }

// InterventionStatus tracks progress of an intervention plan.
type InterventionStatus string

const (
	InterventionPlanned    InterventionStatus = "PLANEJADO"
	InterventionInProgress InterventionStatus = "EM_ANDAMENTO"
	InterventionDone       InterventionStatus = "CONCLUIDO"
)

// ParseInterventionStatus normalizes s; an empty string yields the default
// PLANEJADO.
func ParseInterventionStatus(s string) (InterventionStatus, bool) {
	st := InterventionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case "":
		return InterventionPlanned, true
	case InterventionPlanned, InterventionInProgress, InterventionDone:
		return st, true
	}
	return "", false
}

// Intervention is a plan attached to a problem.
type Intervention struct {
	ID          uint64             `json:"id"`
	ProblemID   uint64             `json:"problem_id"`
	Objective   string             `json:"objective"`
	Goals       *string            `json:"goals"`
	Responsible *string            `json:"responsible"`
	Status      InterventionStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Submission summarises the submission state of a diagnosis.
type Submission struct {
	Status      UBSStatus  `json:"status"`
	SubmittedAt *time.Time `json:"submitted_at"`
	SubmittedBy *uint64    `json:"submitted_by"`
}

// Diagnosis is the read aggregate returned by the diagnosis endpoints.
type Diagnosis struct {
	UBS        UBS               `json:"ubs"`
	Territory  *TerritoryProfile `json:"territory"`
	Needs      *UBSNeeds         `json:"needs"`
	Problems   []Problem         `json:"problems"`
	Submission Submission        `json:"submission"`
}
