package handler

import (
	"encoding/json"
	"testing"

	"github.com/tedkulp/cartulary-go/internal/model"
)

func TestToTagResponse_Serialization(t *testing.T) {
	color := "#ff0000"
	tag := model.Tag{ID: "t1", Name: "invoices", Color: &color}

	data, err := json.Marshal(toTagResponse(tag))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	if decoded["name"] != "invoices" {
		t.Errorf("name: got %v", decoded["name"])
	}
	if decoded["color"] != "#ff0000" {
		t.Errorf("color: got %v", decoded["color"])
	}
	if _, ok := decoded["description"]; ok {
		t.Error("expected description omitted when nil")
	}
}
