package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/barflysocial/bar-match-relay/internal/client"
)

func TestReadPayload(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr error
	}{
		{name: "argument", args: []string{`{"x":1}`}, want: `{"x":1}`},
		{name: "stdin", stdin: "  {\"y\": [1, 2]}\n", want: `{"y": [1, 2]}`},
		{name: "dash reads stdin", args: []string{"-"}, stdin: `"hi"`, want: `"hi"`},
		{name: "invalid json", args: []string{`{nope`}, wantErr: client.ErrInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPayload(tt.args, strings.NewReader(tt.stdin))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("readPayload: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("payload = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReadPayload_Empty(t *testing.T) {
	if _, err := readPayload(nil, strings.NewReader("  \n")); err == nil {
		t.Error("empty stdin accepted")
	}
}
