package validation

import (
	"bytes"
	"testing"
)

func TestValidateMetadataPatch(t *testing.T) {
	tests := []struct {
		name    string
		patch   string
		wantErr bool
	}{
		{"valid single field", `{"description": "a cardiac model"}`, false},
		{"valid nested object", `{"refs": {"doi": "10.1000/x"}}`, false},
		{"valid null removal", `{"description": null}`, false},
		{"empty document", ``, true},
		{"empty object", `{}`, true},
		{"not an object", `["a"]`, true},
		{"not json", `{broken`, true},
		{"protected id", `{"id": "x"}`, true},
		{"protected kind", `{"kind": "protocol"}`, true},
		{"protected author", `{"author_id": "mallory"}`, true},
		{"protected visibility", `{"visibility": "public"}`, true},
		{"protected among valid", `{"description": "ok", "created_at": "now"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadataPatch([]byte(tt.patch))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMetadataPatch(%q) error = %v, wantErr %v", tt.patch, err, tt.wantErr)
			}
		})
	}
}

func TestValidateMetadataPatchSizeLimit(t *testing.T) {
	huge := append([]byte(`{"blob": "`), bytes.Repeat([]byte("x"), MaxMetadataPatchBytes)...)
	huge = append(huge, []byte(`"}`)...)

	if err := ValidateMetadataPatch(huge); err == nil {
		t.Error("expected oversized patch to be rejected")
	}
}
