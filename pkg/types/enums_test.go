package types

import "testing"

func TestMutexPolicy(t *testing.T) {
	tests := []struct {
		p    MutexPolicy
		want string
	}{
		{MutexProtected, "protected"},
		{MutexNoProtect, "noprotect"},
		{MutexPolicy(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.p.String(); got != tt.want {
				t.Errorf("MutexPolicy(%d).String() = %q, want %q", tt.p, got, tt.want)
			}
		})
	}
}

func TestHeapField(t *testing.T) {
	tests := []struct {
		f    HeapField
		want string
	}{
		{HeapFieldBase, "base"},
		{HeapFieldSize, "size"},
		{HeapField(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.f.String(); got != tt.want {
				t.Errorf("HeapField(%d).String() = %q, want %q", tt.f, got, tt.want)
			}
		})
	}
}
