package models

import (
	"encoding/json"
	"testing"
)

func TestEffectiveStatus(t *testing.T) {
	m := Message{}
	if m.EffectiveStatus() != StatusSent {
		t.Fatalf("absent status must read as sent, got %q", m.EffectiveStatus())
	}
	m.Status = StatusSeen
	if m.EffectiveStatus() != StatusSeen {
		t.Fatalf("explicit status ignored")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusSending, StatusSent, StatusDelivered, StatusSeen} {
		if !ValidStatus(s) {
			t.Fatalf("%q rejected", s)
		}
	}
	if ValidStatus("vanished") {
		t.Fatal("unknown status accepted")
	}
}

func TestHasReaction(t *testing.T) {
	m := Message{Reactions: map[string][]string{"alice": {"👍", "❤️"}}}
	if !m.HasReaction("alice", "❤️") {
		t.Fatal("existing reaction not found")
	}
	if m.HasReaction("alice", "🔥") || m.HasReaction("bob", "👍") {
		t.Fatal("phantom reaction reported")
	}
}

func TestMessageWireOmitsEmptyOptionals(t *testing.T) {
	// absent status, reactions and reply must stay off the wire entirely,
	// since older clients treat their presence as meaningful
	b, err := json.Marshal(Message{ID: "m1", SenderID: "a", Text: "t", Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"status", "reactions", "replyTo"} {
		if _, ok := raw[field]; ok {
			t.Fatalf("%s serialized despite being empty", field)
		}
	}
	for _, field := range []string{"id", "senderId", "text", "timestamp"} {
		if _, ok := raw[field]; !ok {
			t.Fatalf("%s missing from wire form", field)
		}
	}
}
