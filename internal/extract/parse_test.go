package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"photocat/internal/catalog"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    catalog.Document
		wantErr bool
	}{
		{
			name: "exiftool single element array",
			out:  `[{"SourceFile":"-","Model":"X100V","FNumber":2.8}]`,
			want: catalog.Document{"Model": "X100V", "FNumber": json.Number("2.8")},
		},
		{
			name: "nested single element arrays",
			out:  `[[{"A":"1"}]]`,
			want: catalog.Document{"A": "1"},
		},
		{
			name: "plain object",
			out:  `{"A":{"B":[1,2]}}`,
			want: catalog.Document{"A": map[string]any{"B": []any{json.Number("1"), json.Number("2")}}},
		},
		{
			name: "scalar is wrapped",
			out:  `"hello"`,
			want: catalog.Document{"data": "hello"},
		},
		{
			name: "multi element array is wrapped",
			out:  `[1,2]`,
			want: catalog.Document{"data": []any{json.Number("1"), json.Number("2")}},
		},
		{
			name: "surrounding whitespace",
			out:  "\n  {\"A\":\"1\"}\n",
			want: catalog.Document{"A": "1"},
		},
		{name: "not json", out: "Error: file format not supported", wantErr: true},
		{name: "trailing garbage", out: `{"A":"1"} {"B":"2"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutput([]byte(tt.out))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseOutput() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseOutput_empty(t *testing.T) {
	_, err := ParseOutput([]byte("  \n"))
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("ParseOutput() error = %v, want ErrNoOutput", err)
	}
}
