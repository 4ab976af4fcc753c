package repository

import (
	"context"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

var (
	studentNameColumns  = []string{"Name", "Full Name", "Student Name"}
	studentGuardianCols = []string{"Guardian", "Guardians", "Parent"}
)

// DirectoryRepository reads the students, guardians and teachers referenced by lessons.
type DirectoryRepository struct {
	client RecordClient
	tables Tables
}

// NewDirectoryRepository constructs a DirectoryRepository.
func NewDirectoryRepository(client RecordClient, tables Tables) *DirectoryRepository {
	if tables.Students == "" {
		tables.Students = "Students"
	}
	if tables.Teachers == "" {
		tables.Teachers = "Teachers"
	}
	if tables.Guardians == "" {
		tables.Guardians = "Guardians"
	}
	return &DirectoryRepository{client: client, tables: tables}
}

// FindStudent loads a student with its guardian links.
func (r *DirectoryRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	record, err := r.client.Get(ctx, r.tables.Students, id)
	if err != nil {
		return nil, err
	}
	student := &models.Student{
		ID:   record.ID,
		Name: record.Fields.FirstString(studentNameColumns...),
	}
	for _, column := range studentGuardianCols {
		if ids := record.Fields.LinkedIDs(column); len(ids) > 0 {
			student.GuardianIDs = ids
			break
		}
	}
	return student, nil
}

// FindGuardian loads a guardian's text columns.
func (r *DirectoryRepository) FindGuardian(ctx context.Context, id string) (*models.Guardian, error) {
	record, err := r.client.Get(ctx, r.tables.Guardians, id)
	if err != nil {
		return nil, err
	}
	return &models.Guardian{ID: record.ID, Attributes: textColumns(record.Fields)}, nil
}

// FindTeacher loads a teacher's text columns.
func (r *DirectoryRepository) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	record, err := r.client.Get(ctx, r.tables.Teachers, id)
	if err != nil {
		return nil, err
	}
	return &models.Teacher{
		ID:         record.ID,
		Email:      record.Fields.FirstString("Email", "Email Address"),
		Attributes: textColumns(record.Fields),
	}, nil
}

func textColumns(fields recordstore.Fields) map[string]string {
	attrs := make(map[string]string, len(fields))
	for key := range fields {
		if value := fields.String(key); value != "" {
			attrs[key] = value
		}
	}
	return attrs
}
