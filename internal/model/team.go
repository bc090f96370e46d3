package model

import (
	"strings"
	"time"
)

// MicroareaStatus says whether a microarea has an assigned community agent.
type MicroareaStatus string

const (
	MicroareaCovered   MicroareaStatus = "COBERTA"
	MicroareaUncovered MicroareaStatus = "DESCOBERTA"
)

// ParseMicroareaStatus normalizes s; empty yields COBERTA.
func ParseMicroareaStatus(s string) (MicroareaStatus, bool) {
	st := MicroareaStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case "":
		return MicroareaCovered, true
	case MicroareaCovered, MicroareaUncovered:
		return st, true
	}
	return "", false
}

// Microarea is a territorial subdivision of a unit.
type Microarea struct {
	ID         uint64          `json:"id"`         // microareas.id
	UBSID      uint64          `json:"ubs_id"`     // microareas.ubs_id
	Name       string          `json:"name"`       // microareas.name
	Population int             `json:"population"` // microareas.population
	Families   int             `json:"families"`   // microareas.families
	Status     MicroareaStatus `json:"status"`     // microareas.status
	CreatedAt  time.Time       `json:"created_at"` // microareas.created_at
	UpdatedAt  time.Time       `json:"updated_at"` // microareas.updated_at
}

// Agent assigns an ACS account to a microarea.
type Agent struct {
	ID          uint64    `json:"id"`           // agents.id
	UserID      uint64    `json:"user_id"`      // agents.user_id
	MicroareaID uint64    `json:"microarea_id"` // agents.microarea_id
	IsActive    bool      `json:"is_active"`    // agents.is_active
	CreatedAt   time.Time `json:"created_at"`   // agents.created_at
}

// AgentView is an agent with its account and microarea names.
type AgentView struct {
	Agent
	UserName      string `json:"user_name"`
	MicroareaName string `json:"microarea_name"`
}

// TerritoryKPIs aggregates the microareas of a unit.
type TerritoryKPIs struct {
	Population      int     `json:"population"`
	Families        int     `json:"families"`
	Microareas      int     `json:"microareas"`
	Uncovered       int     `json:"uncovered"`
	CoveragePercent float64 `json:"coverage_percent"`
}
