package storage

import (
	"encoding/base64"
	"testing"
)

func TestDecodeDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))

	tests := []struct {
		name    string
		uri     string
		wantExt string
		wantErr bool
	}{
		{name: "png", uri: "data:image/png;base64," + payload, wantExt: "png"},
		{name: "jpeg normalised", uri: "data:image/jpeg;base64," + payload, wantExt: "jpg"},
		{name: "not an image", uri: "data:application/pdf;base64," + payload, wantErr: true},
		{name: "missing marker", uri: "data:image/png," + payload, wantErr: true},
		{name: "bad base64", uri: "data:image/png;base64,!!!", wantErr: true},
		{name: "plain string", uri: "not-a-data-uri", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			data, ext, err := DecodeDataURI(tc.uri)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ext != tc.wantExt {
				t.Errorf("ext = %q, want %q", ext, tc.wantExt)
			}
			if string(data) != "fake image bytes" {
				t.Errorf("decoded payload = %q", data)
			}
		})
	}
}
