package config

import "testing"

func TestIsValidStoreBackend(t *testing.T) {
	tests := []struct {
		backend string
		want    bool
	}{
		{backend: "mysql", want: true},
		{backend: "jsonfile", want: true},
		{backend: "json", want: false},
		{backend: "sqlite", want: false},
		{backend: "", want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.backend, func(t *testing.T) {
			if got := IsValidStoreBackend(tc.backend); got != tc.want {
				t.Fatalf("IsValidStoreBackend(%q) = %v, want %v", tc.backend, got, tc.want)
			}
		})
	}
}
