package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils/validation"
)

func TestLookupErr(t *testing.T) {
	for _, cause := range []error{aggregation.ErrUserNotFound, aggregation.ErrSubjectNotFound} {
		err := lookupErr(fmt.Errorf("wrapped: %w", cause))
		if !errors.Is(err, ErrNotFound) || !errors.Is(err, cause) {
			t.Errorf("lookupErr(%v) = %v, want ErrNotFound keeping the cause", cause, err)
		}
	}

	storage := &aggregation.StorageError{Op: "commit", Err: errors.New("boom")}
	if err := lookupErr(storage); err != storage {
		t.Errorf("lookupErr(storage) = %v, want unchanged", err)
	}
}

func TestLookupErrMapsOnce(t *testing.T) {
	once := lookupErr(aggregation.ErrSubjectNotFound)
	twice := lookupErr(once)
	if twice != once {
		t.Errorf("lookupErr(lookupErr(err)) = %q, want %q", twice, once)
	}
	if got, want := twice.Error(), "resource not found: subject not found"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestInvalidInputFromValidator(t *testing.T) {
	v := validation.NewValidator()
	err := v.ValidateStruct(CreateSubjectRequest{Name: ""})
	if err == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	wrapped := invalidInput(err)
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Errorf("invalidInput() = %v, want ErrInvalidInput", wrapped)
	}
}

func TestAddGradeRequestValidation(t *testing.T) {
	v := validation.NewValidator()
	id := uint(3)
	bad := 7.0

	tests := []struct {
		name    string
		req     AddGradeRequest
		wantErr bool
	}{
		{"by id", AddGradeRequest{SubjectID: &id, Name: "Test"}, false},
		{"by name", AddGradeRequest{SubjectName: "Physik", Name: "Test"}, false},
		{"no subject", AddGradeRequest{Name: "Test"}, true},
		{"no name", AddGradeRequest{SubjectID: &id}, true},
		{"grade above scale", AddGradeRequest{SubjectID: &id, Name: "Test", Value: &bad}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
