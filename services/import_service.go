package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/model"
	"github.com/SirCraft007/grade-api/services/aggregation"
	"github.com/SirCraft007/grade-api/utils"
	"gorm.io/datatypes"
)

// gradeDateLayouts are tried in order when parsing exported dates
var gradeDateLayouts = []string{"02.01.2006", "2006-01-02", time.RFC3339}

// GradeExport is the JSON document produced by the school portal export
type GradeExport struct {
	Subjects []string                   `json:"subjects"`
	Grades   map[string][]ExportedGrade `json:"grades"`
}

// ExportedGrade is one exam of the export. Grade and weight arrive as numbers or strings.
type ExportedGrade struct {
	Date    string    `json:"date"`
	Name    string    `json:"name"`
	Grade   FlexFloat `json:"grade"`
	Details string    `json:"details"`
	Weight  FlexFloat `json:"weight"`
}

// FlexFloat decodes a JSON number, numeric string, empty string or null. Valid is false
// for the last two.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = FlexFloat{}
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = FlexFloat{}
			return nil
		}
		// Swiss exports use a decimal comma now and then
		raw = strings.ReplaceAll(raw, ",", ".")
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

func (f FlexFloat) ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// ParseGradeExport decodes an export document
func ParseGradeExport(r io.Reader) (*GradeExport, error) {
	var export GradeExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("%w: failed to decode export: %v", ErrInvalidInput, err)
	}
	return &export, nil
}

// SubjectNames returns the declared subjects followed by any subject that only appears
// as a grade key, sorted
func (e *GradeExport) SubjectNames() []string {
	seen := make(map[string]struct{}, len(e.Subjects))
	names := make([]string, 0, len(e.Subjects)+len(e.Grades))
	for _, name := range e.Subjects {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	var extra []string
	for name := range e.Grades {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return append(names, extra...)
}

// ImportResult reports what an import wrote
type ImportResult struct {
	SubjectsCreated int                      `json:"subjects_created"`
	GradesImported  int                      `json:"grades_imported"`
	Summary         *aggregation.UserSummary `json:"summary"`
}

// ImportService loads portal exports into a user's gradebook
type ImportService struct {
	pipeline *aggregation.Pipeline
	log      *utils.Logger
}

// NewImportService creates a new import service
func NewImportService(pipeline *aggregation.Pipeline, logger *utils.Logger) *ImportService {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &ImportService{
		pipeline: pipeline,
		log:      logger.With("component", "import"),
	}
}

// Import writes every subject and grade of export for userID in one pipeline run.
// Existing subjects are reused by name; empty grades are stored as not graded.
func (s *ImportService) Import(ctx context.Context, userID uint, export *GradeExport) (*ImportResult, error) {
	rows, err := export.gradeRows()
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	summary, err := s.pipeline.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		subjectIDs := make(map[string]uint)
		affected := make([]uint, 0, len(export.Subjects))

		for _, name := range export.SubjectNames() {
			subject, created, err := resolveSubjectByName(dbc, userID, name)
			if err != nil {
				return nil, err
			}
			if created {
				result.SubjectsCreated++
			}
			subjectIDs[name] = subject.ID
			affected = append(affected, subject.ID)
		}

		grades := make([]model.Grade, 0, len(rows))
		for _, row := range rows {
			row.grade.UserID = userID
			row.grade.SubjectID = subjectIDs[row.subject]
			grades = append(grades, row.grade)
		}
		if len(grades) > 0 {
			if err := dbc.Tx.CreateInBatches(&grades, 200).Error; err != nil {
				return nil, fmt.Errorf("failed to import grades: %w", err)
			}
		}
		result.GradesImported = len(grades)
		return affected, nil
	})
	if err != nil {
		return nil, lookupErr(err)
	}

	result.Summary = summary
	s.log.Info("export imported",
		"user_id", userID,
		"subjects_created", result.SubjectsCreated,
		"grades", result.GradesImported,
	)
	return result, nil
}

type importRow struct {
	subject string
	grade   model.Grade
}

// gradeRows validates the grades of the export before anything is written
func (e *GradeExport) gradeRows() ([]importRow, error) {
	subjects := make([]string, 0, len(e.Grades))
	for name := range e.Grades {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)

	var rows []importRow
	for _, key := range subjects {
		subject := strings.TrimSpace(key)
		if subject == "" {
			return nil, fmt.Errorf("%w: grades listed under an empty subject name", ErrInvalidInput)
		}
		for i, g := range e.Grades[key] {
			date, err := parseGradeDate(g.Date)
			if err != nil {
				return nil, fmt.Errorf("%w: %s grade %d: %v", ErrInvalidInput, subject, i+1, err)
			}
			name := strings.TrimSpace(g.Name)
			if name == "" {
				return nil, fmt.Errorf("%w: %s grade %d: name is required", ErrInvalidInput, subject, i+1)
			}
			weight := model.DefaultGradeWeight
			if g.Weight.Valid {
				weight = g.Weight.Value
			}
			if weight < 0 {
				return nil, fmt.Errorf("%w: %s grade %d: negative weight", ErrInvalidInput, subject, i+1)
			}
			if g.Grade.Valid && (g.Grade.Value < model.MinGradeValue || g.Grade.Value > model.MaxGradeValue) {
				return nil, fmt.Errorf("%w: %s grade %d: value %v outside %v..%v",
					ErrInvalidInput, subject, i+1, g.Grade.Value, model.MinGradeValue, model.MaxGradeValue)
			}
			rows = append(rows, importRow{
				subject: subject,
				grade: model.Grade{
					Name:    name,
					Date:    datatypes.Date(date),
					Value:   g.Grade.ptr(),
					Weight:  weight,
					Details: g.Details,
				},
			})
		}
	}
	return rows, nil
}

func parseGradeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range gradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
