package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/lesson-scheduler-api/pkg/recordstore"
)

type fakeRecordClient struct {
	records   map[string]map[string]recordstore.Record
	listOpts  []recordstore.ListOptions
	created   [][]recordstore.Fields
	updated   map[string]recordstore.Fields
	deleted   [][]string
	createErr error
	nextID    int
}

func newFakeRecordClient() *fakeRecordClient {
	return &fakeRecordClient{
		records: make(map[string]map[string]recordstore.Record),
		updated: make(map[string]recordstore.Fields),
	}
}

func (f *fakeRecordClient) put(table string, record recordstore.Record) {
	if f.records[table] == nil {
		f.records[table] = make(map[string]recordstore.Record)
	}
	f.records[table][record.ID] = record
}

func (f *fakeRecordClient) Get(ctx context.Context, table, id string) (*recordstore.Record, error) {
	record, ok := f.records[table][id]
	if !ok {
		return nil, recordstore.ErrNotFound
	}
	return &record, nil
}

func (f *fakeRecordClient) ListAll(ctx context.Context, table string, opts recordstore.ListOptions) ([]recordstore.Record, error) {
	f.listOpts = append(f.listOpts, opts)
	var out []recordstore.Record
	for _, record := range f.records[table] {
		out = append(out, record)
	}
	return out, nil
}

func (f *fakeRecordClient) Create(ctx context.Context, table string, rows []recordstore.Fields) ([]recordstore.Record, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, rows)
	out := make([]recordstore.Record, 0, len(rows))
	for _, row := range rows {
		f.nextID++
		record := recordstore.Record{ID: fmt.Sprintf("rec%d", f.nextID), Fields: row}
		f.put(table, record)
		out = append(out, record)
	}
	return out, nil
}

func (f *fakeRecordClient) Update(ctx context.Context, table, id string, fields recordstore.Fields) (*recordstore.Record, error) {
	record, ok := f.records[table][id]
	if !ok {
		return nil, recordstore.ErrNotFound
	}
	f.updated[id] = fields
	for key, value := range fields {
		record.Fields[key] = value
	}
	f.put(table, record)
	return &record, nil
}

func (f *fakeRecordClient) Delete(ctx context.Context, table string, ids []string) ([]string, error) {
	f.deleted = append(f.deleted, ids)
	var out []string
	for _, id := range ids {
		if _, ok := f.records[table][id]; ok {
			delete(f.records[table], id)
			out = append(out, id)
		}
	}
	return out, nil
}
