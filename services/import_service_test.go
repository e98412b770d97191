package services

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFlexFloatUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexFloat
		wantErr bool
	}{
		{`5`, FlexFloat{Value: 5, Valid: true}, false},
		{`4.5`, FlexFloat{Value: 4.5, Valid: true}, false},
		{`"5.25"`, FlexFloat{Value: 5.25, Valid: true}, false},
		{`"4,75"`, FlexFloat{Value: 4.75, Valid: true}, false},
		{`""`, FlexFloat{}, false},
		{`"  "`, FlexFloat{}, false},
		{`null`, FlexFloat{}, false},
		{`"abc"`, FlexFloat{}, true},
		{`true`, FlexFloat{}, true},
	}
	for _, tt := range tests {
		var got FlexFloat
		err := json.Unmarshal([]byte(tt.in), &got)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseGradeExport(t *testing.T) {
	export, err := ParseGradeExport(strings.NewReader(sampleExport))
	if err != nil {
		t.Fatalf("ParseGradeExport() error = %v", err)
	}

	if got := export.SubjectNames(); !reflect.DeepEqual(got, []string{"Mathematik", "Musik", "Geschichte"}) {
		t.Errorf("SubjectNames() = %v", got)
	}

	rows, err := export.gradeRows()
	if err != nil {
		t.Fatalf("gradeRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}

	// keys are walked in sorted order: Mathematik then Musik
	first := rows[0]
	if first.subject != "Mathematik" || first.grade.Name != "Algebra" || *first.grade.Value != 5 || first.grade.Weight != 1 {
		t.Errorf("first row = %+v", first)
	}
	if got := time.Time(first.grade.Date); !got.Equal(time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first date = %v", got)
	}
	last := rows[3]
	if last.grade.Value != nil || last.grade.Details != "noch offen" {
		t.Errorf("empty grade row = %+v, want nil value", last)
	}
}

func TestGradeExportSubjectNamesIncludesUndeclared(t *testing.T) {
	export := &GradeExport{
		Subjects: []string{"Physik", " Physik ", ""},
		Grades: map[string][]ExportedGrade{
			"Zeichnen": nil,
			"Biologie": nil,
			"Physik":   nil,
		},
	}
	want := []string{"Physik", "Biologie", "Zeichnen"}
	if got := export.SubjectNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("SubjectNames() = %v, want %v", got, want)
	}
}

func TestGradeRowsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad date", `{"grades": {"Physik": [{"date": "someday", "name": "Test", "grade": 5}]}}`},
		{"missing name", `{"grades": {"Physik": [{"date": "2024-01-20", "name": " ", "grade": 5}]}}`},
		{"negative weight", `{"grades": {"Physik": [{"date": "2024-01-20", "name": "Test", "grade": 5, "weight": -1}]}}`},
		{"grade above scale", `{"grades": {"Physik": [{"date": "2024-01-20", "name": "Test", "grade": 7}]}}`},
		{"negative grade", `{"grades": {"Physik": [{"date": "2024-01-20", "name": "Test", "grade": "-1"}]}}`},
		{"empty subject", `{"grades": {" ": [{"date": "2024-01-20", "name": "Test", "grade": 5}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			export, err := ParseGradeExport(strings.NewReader(tt.doc))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := export.gradeRows(); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("gradeRows() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestParseGradeExportMalformed(t *testing.T) {
	if _, err := ParseGradeExport(strings.NewReader(`{"grades": [`)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseGradeExport() error = %v, want ErrInvalidInput", err)
	}
	if _, err := ParseGradeExport(strings.NewReader(`{"grades": {"A": [{"grade": "x"}]}}`)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseGradeExport(bad grade) error = %v, want ErrInvalidInput", err)
	}
}

func TestMissingWeightDefaultsToOne(t *testing.T) {
	export, err := ParseGradeExport(strings.NewReader(`{"grades": {"Physik": [{"date": "2024-01-20", "name": "Test", "grade": 5}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	rows, err := export.gradeRows()
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].grade.Weight != 1 {
		t.Errorf("weight = %v, want 1", rows[0].grade.Weight)
	}
}
