package domain

import (
	"encoding/json"
	"time"
)

// AgentSchemaVersion is the record layout written by this package.
const AgentSchemaVersion = 2

type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
	AgentTraining AgentStatus = "training"
)

// ParseAgentStatus maps unknown values to inactive.
func ParseAgentStatus(raw string) AgentStatus {
	switch AgentStatus(raw) {
	case AgentActive, AgentInactive, AgentTraining:
		return AgentStatus(raw)
	// older records used "learning" for the training state
	case "learning":
		return AgentTraining
	default:
		return AgentInactive
	}
}

type Agent struct {
	SchemaVersion        int         `json:"schemaVersion"`
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	Status               AgentStatus `json:"status"`
	Capabilities         []string    `json:"capabilities"`
	KnowledgeBaseIDs     []string    `json:"knowledgeBaseIds"`
	LastActive           time.Time   `json:"lastActive"`
	ConversationsHandled int         `json:"conversationsHandled"`
	Avatar               string      `json:"avatar,omitempty"`
}

// UnmarshalJSON accepts both current and legacy agent layouts. Version 1
// records carry knowledgeBaseSources instead of knowledgeBaseIds.
func (a *Agent) UnmarshalJSON(data []byte) error {
	var raw struct {
		SchemaVersion        int       `json:"schemaVersion"`
		ID                   string    `json:"id"`
		Name                 string    `json:"name"`
		Description          string    `json:"description"`
		Status               string    `json:"status"`
		Capabilities         []string  `json:"capabilities"`
		KnowledgeBaseIDs     []string  `json:"knowledgeBaseIds"`
		KnowledgeBaseSources []string  `json:"knowledgeBaseSources"`
		LastActive           time.Time `json:"lastActive"`
		ConversationsHandled int       `json:"conversationsHandled"`
		Avatar               string    `json:"avatar"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ids := raw.KnowledgeBaseIDs
	if ids == nil {
		ids = raw.KnowledgeBaseSources
	}
	*a = Agent{
		SchemaVersion:        raw.SchemaVersion,
		ID:                   raw.ID,
		Name:                 raw.Name,
		Description:          raw.Description,
		Status:               ParseAgentStatus(raw.Status),
		Capabilities:         raw.Capabilities,
		KnowledgeBaseIDs:     ids,
		LastActive:           raw.LastActive,
		ConversationsHandled: raw.ConversationsHandled,
		Avatar:               raw.Avatar,
	}
	a.Normalize()
	return nil
}

// Normalize fills defaults so callers never see nil slices or a zero version.
func (a *Agent) Normalize() {
	if a.SchemaVersion == 0 {
		a.SchemaVersion = 1
	}
	if a.Capabilities == nil {
		a.Capabilities = []string{}
	}
	if a.KnowledgeBaseIDs == nil {
		a.KnowledgeBaseIDs = []string{}
	}
	a.Status = ParseAgentStatus(string(a.Status))
}

// Clone returns a copy that does not share slices.
func (a Agent) Clone() Agent {
	out := a
	out.Capabilities = append([]string{}, a.Capabilities...)
	out.KnowledgeBaseIDs = append([]string{}, a.KnowledgeBaseIDs...)
	return out
}
