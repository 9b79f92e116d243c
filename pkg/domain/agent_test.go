package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAgentDecodeLegacySources(t *testing.T) {
	raw := `{"id":"agent-1","name":"Assistente Virtual","status":"active","knowledgeBaseSources":["list-1","list-2"]}`
	var a Agent
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(a.KnowledgeBaseIDs) != 2 || a.KnowledgeBaseIDs[0] != "list-1" {
		t.Fatalf("unexpected knowledge ids: %v", a.KnowledgeBaseIDs)
	}
	if a.SchemaVersion != 1 {
		t.Fatalf("expected schema version 1, got %d", a.SchemaVersion)
	}
	if a.Capabilities == nil {
		t.Fatalf("expected empty capabilities slice")
	}
}

func TestAgentDecodePrefersCurrentField(t *testing.T) {
	raw := `{"schemaVersion":2,"id":"a","status":"training","knowledgeBaseIds":["x"],"knowledgeBaseSources":["y"]}`
	var a Agent
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(a.KnowledgeBaseIDs) != 1 || a.KnowledgeBaseIDs[0] != "x" {
		t.Fatalf("unexpected knowledge ids: %v", a.KnowledgeBaseIDs)
	}
	if a.Status != AgentTraining {
		t.Fatalf("expected training, got %s", a.Status)
	}
}

func TestAgentDecodeUnknownStatus(t *testing.T) {
	var a Agent
	if err := json.Unmarshal([]byte(`{"id":"a","status":"sleeping"}`), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Status != AgentInactive {
		t.Fatalf("expected inactive, got %s", a.Status)
	}
	var legacy Agent
	if err := json.Unmarshal([]byte(`{"id":"b","status":"learning"}`), &legacy); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if legacy.Status != AgentTraining {
		t.Fatalf("expected learning to map to training, got %s", legacy.Status)
	}
}

func TestConversationRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Conversation{
		ID: "conv-1",
		Messages: []Message{
			{ID: "m1", Sender: SenderGuest, Timestamp: now.Add(-time.Hour), Read: false},
			{ID: "m2", Sender: SenderAgent, Timestamp: now.Add(-30 * time.Minute), Read: false},
			{ID: "m3", Sender: SenderGuest, Timestamp: now, Read: true},
		},
	}
	c.Refresh()
	if c.UnreadCount != 1 {
		t.Fatalf("expected 1 unread guest message, got %d", c.UnreadCount)
	}
	if !c.LastMessageTimestamp.Equal(now) {
		t.Fatalf("unexpected last timestamp: %v", c.LastMessageTimestamp)
	}
}

func TestUserCompanyLookup(t *testing.T) {
	u := User{ID: "u", Companies: []Company{{ID: "c1", Name: "One"}}}
	if !u.HasCompany("c1") || u.HasCompany("c2") {
		t.Fatalf("unexpected company membership")
	}
	clone := u.Clone()
	clone.Companies[0].Name = "changed"
	if u.Companies[0].Name != "One" {
		t.Fatalf("clone shares companies slice")
	}
}
