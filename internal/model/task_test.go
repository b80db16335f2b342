package model

import (
	"testing"
)

func TestIDList(t *testing.T) {
	if got := JoinIDList([]int64{3, 1, 404}); got != "3,1,404" {
		t.Errorf("unexpected join %q", got)
	}
	if got := JoinIDList(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}

	tests := []struct {
		in   string
		want []uint
	}{
		{"", nil},
		{"1", []uint{1}},
		{"1, 2,x,-3,4", []uint{1, 2, 4}},
	}
	for _, tt := range tests {
		got := ParseIDList(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
			}
		}
	}
}
