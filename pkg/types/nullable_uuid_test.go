package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNullableUUIDAbsent(t *testing.T) {
	var payload struct {
		Manager NullableUUID `json:"manager"`
	}
	if err := json.Unmarshal([]byte(`{}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Manager.Valid {
		t.Fatal("absent field must not be valid")
	}
}

func TestNullableUUIDExplicitNull(t *testing.T) {
	var payload struct {
		Manager NullableUUID `json:"manager"`
	}
	if err := json.Unmarshal([]byte(`{"manager":null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Manager.Valid || payload.Manager.Value != nil {
		t.Fatalf("explicit null must be valid with nil value: %+v", payload.Manager)
	}
}

func TestNullableUUIDValue(t *testing.T) {
	id := uuid.New()
	var payload struct {
		Manager NullableUUID `json:"manager"`
	}
	if err := json.Unmarshal([]byte(`{"manager":"`+id.String()+`"}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Manager.Valid || payload.Manager.Value == nil || *payload.Manager.Value != id {
		t.Fatalf("unexpected parse result: %+v", payload.Manager)
	}

	clone := payload.Manager.Clone()
	if clone.Value == payload.Manager.Value {
		t.Fatal("clone must copy the pointed-to value")
	}
}
