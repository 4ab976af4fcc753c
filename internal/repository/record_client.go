package repository

import (
	"context"

	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

// RecordClient is the subset of the record store API used by the repositories.
type RecordClient interface {
	Get(ctx context.Context, table, id string) (*recordstore.Record, error)
	ListAll(ctx context.Context, table string, opts recordstore.ListOptions) ([]recordstore.Record, error)
	Create(ctx context.Context, table string, rows []recordstore.Fields) ([]recordstore.Record, error)
	Update(ctx context.Context, table, id string, fields recordstore.Fields) (*recordstore.Record, error)
	Delete(ctx context.Context, table string, ids []string) ([]string, error)
}

// Tables names the record store tables holding each entity.
type Tables struct {
	Lessons   string
	Students  string
	Teachers  string
	Guardians string
}
