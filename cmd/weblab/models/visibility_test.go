package models

import "testing"

func TestVisibilityValid(t *testing.T) {
	for _, v := range []Visibility{VisibilityPrivate, VisibilityPublic, VisibilityModerated} {
		if !v.Valid() {
			t.Errorf("expected %q to be valid", v)
		}
	}

	for _, v := range []Visibility{"", "PUBLIC", "hidden"} {
		if v.Valid() {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}

func TestWorldReadable(t *testing.T) {
	if VisibilityPrivate.WorldReadable() {
		t.Error("private must not be world-readable")
	}
	if !VisibilityPublic.WorldReadable() {
		t.Error("public must be world-readable")
	}
	if !VisibilityModerated.WorldReadable() {
		t.Error("moderated must be world-readable")
	}
}

// TestJointVisibility verifies the most conservative level always wins
func TestJointVisibility(t *testing.T) {
	tests := []struct {
		name string
		in   []Visibility
		want Visibility
	}{
		{"empty defaults to private", nil, VisibilityPrivate},
		{"single public", []Visibility{VisibilityPublic}, VisibilityPublic},
		{"private dominates public", []Visibility{VisibilityPublic, VisibilityPrivate}, VisibilityPrivate},
		{"private dominates moderated", []Visibility{VisibilityModerated, VisibilityPrivate}, VisibilityPrivate},
		{"public dominates moderated", []Visibility{VisibilityModerated, VisibilityPublic}, VisibilityPublic},
		{"both moderated stays moderated", []Visibility{VisibilityModerated, VisibilityModerated}, VisibilityModerated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JointVisibility(tt.in...); got != tt.want {
				t.Errorf("JointVisibility(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestJointVisibilityNeverWidens checks that adding a level never makes the
// joint result more permissive
func TestJointVisibilityNeverWidens(t *testing.T) {
	levels := []Visibility{VisibilityPrivate, VisibilityPublic, VisibilityModerated}

	for _, a := range levels {
		for _, b := range levels {
			joint := JointVisibility(a, b)
			if joint.Rank() > a.Rank() || joint.Rank() > b.Rank() {
				t.Errorf("JointVisibility(%q, %q) = %q widens access", a, b, joint)
			}
		}
	}
}
