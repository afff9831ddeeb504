package types

import "testing"

func TestRank_Valid(t *testing.T) {
	tests := []struct {
		name    string
		rank    Rank
		jobSize int
		want    bool
	}{
		{"first", 0, 4, true},
		{"last", 3, 4, true},
		{"equal to size", 4, 4, false},
		{"negative", -1, 4, false},
		{"empty job", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rank.Valid(tt.jobSize); got != tt.want {
				t.Errorf("Rank(%d).Valid(%d) = %v, want %v", tt.rank, tt.jobSize, got, tt.want)
			}
		})
	}
}

func TestContextID_String(t *testing.T) {
	if got := DefaultContextID.String(); got != "0" {
		t.Errorf("DefaultContextID.String() = %q, want %q", got, "0")
	}
	if got := ContextID(42).String(); got != "42" {
		t.Errorf("ContextID(42).String() = %q, want %q", got, "42")
	}
}
