package query

import (
	"reflect"
	"testing"
)

func testRecord() Record {
	return Record{Raw: map[string]any{
		"brand_name":  "TYLENOL",
		"receivedate": "20240115",
		"serious":     float64(1),
		"openfda": map[string]any{
			"manufacturer_name": []any{"Johnson & Johnson"},
			"rxcui":             []any{"209387", "209459"},
		},
		"patient": map[string]any{
			"drug": []any{
				map[string]any{
					"medicinalproduct": "ASPIRIN",
				},
			},
		},
	}}
}

func TestRecord_Value(t *testing.T) {
	r := testRecord()

	tests := []struct {
		name string
		path string
		want any
	}{
		{
			name: "top-level string",
			path: "brand_name",
			want: "TYLENOL",
		},
		{
			name: "top-level number",
			path: "serious",
			want: float64(1),
		},
		{
			name: "nested field",
			path: "openfda.manufacturer_name",
			want: "Johnson & Johnson",
		},
		{
			name: "descends into first list element",
			path: "patient.drug.medicinalproduct",
			want: "ASPIRIN",
		},
		{
			name: "missing field",
			path: "generic_name",
			want: nil,
		},
		{
			name: "missing nested field",
			path: "openfda.unii",
			want: nil,
		},
		{
			name: "path through scalar",
			path: "brand_name.anything",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Value(tt.path); got != tt.want {
				t.Errorf("Value(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecord_String(t *testing.T) {
	r := testRecord()

	if got := r.String("receivedate"); got != "20240115" {
		t.Errorf("String(receivedate) = %q", got)
	}
	if got := r.String("serious"); got != "1" {
		t.Errorf("String(serious) = %q, want rendered number", got)
	}
	if got := r.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
}

func TestRecord_Strings(t *testing.T) {
	r := testRecord()

	got := r.Strings("openfda.rxcui")
	want := []string{"209387", "209459"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Strings(openfda.rxcui) = %v, want %v", got, want)
	}

	// Scalar fields come back as a single-element slice.
	if got := r.Strings("brand_name"); !reflect.DeepEqual(got, []string{"TYLENOL"}) {
		t.Errorf("Strings(brand_name) = %v", got)
	}

	if got := r.Strings("missing"); got != nil {
		t.Errorf("Strings(missing) = %v, want nil", got)
	}
}

func TestResult_Returned(t *testing.T) {
	result := &Result{
		Records:      []Record{{}, {}, {}},
		TotalResults: 500,
	}

	if result.Returned() != 3 {
		t.Errorf("Returned() = %d, want 3", result.Returned())
	}
	if result.TotalResults != 500 {
		t.Errorf("TotalResults = %d, want 500", result.TotalResults)
	}
}
