package prompts

import "testing"

func TestSystem(t *testing.T) {
	tests := []struct {
		override string
		want     string
	}{
		{"", DefaultSystem},
		{"   ", DefaultSystem},
		{"-", ""},
		{"Be terse.", "Be terse."},
	}
	for _, tt := range tests {
		if got := System(tt.override); got != tt.want {
			t.Errorf("System(%q) = %q, want %q", tt.override, got, tt.want)
		}
	}
}

func TestUser(t *testing.T) {
	if got := User(nil); got != DefaultUser {
		t.Errorf("User(nil) = %q, want default", got)
	}
	if got := User([]string{"open", "x.ai"}); got != "open x.ai" {
		t.Errorf("User() = %q, want %q", got, "open x.ai")
	}
}
