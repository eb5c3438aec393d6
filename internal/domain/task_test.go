package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalOmitsEmptyCompletedAt(t *testing.T) {
	task := Task{ID: "t1", Title: "Buy milk"}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if strings.Contains(string(payload), "completedAt") {
		t.Fatalf("expected completedAt to be omitted, got %s", payload)
	}
	if !strings.Contains(string(payload), "\"completed\":false") {
		t.Fatalf("expected completed field to be present, got %s", payload)
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "Buy milk", want: "Buy milk"},
		{name: "padded", in: "  Buy milk \n", want: "Buy milk"},
		{name: "empty", in: "", wantErr: ErrEmptyTitle},
		{name: "whitespace", in: " \t ", wantErr: ErrEmptyTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTitle(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NormalizeTitle(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidatePreference(t *testing.T) {
	for _, name := range Preferences {
		if err := ValidatePreference(name); err != nil {
			t.Fatalf("expected %q to be valid: %v", name, err)
		}
	}
	if err := ValidatePreference("font"); !errors.Is(err, ErrUnknownPreference) {
		t.Fatalf("expected ErrUnknownPreference, got %v", err)
	}
	if got := PreferenceAttr(PrefTheme); got != "data-theme" {
		t.Fatalf("unexpected attribute name: %s", got)
	}
}
