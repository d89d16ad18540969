package registration

import "testing"

func TestFeeForClasses(t *testing.T) {
	tests := []struct {
		classes int
		want    string
	}{
		{classes: 0, want: "0"},
		{classes: 1, want: "120"},
		{classes: 2, want: "200"},
		{classes: 3, want: "280"},
		{classes: 4, want: "320"},
		{classes: 7, want: "320"},
		{classes: -1, want: "0"},
	}

	for _, tc := range tests {
		got := FeeForClasses(tc.classes)
		if got.String() != tc.want {
			t.Errorf("FeeForClasses(%d) = %s, want %s", tc.classes, got, tc.want)
		}
	}
}
