package repository

import (
	"context"
	"log/slog"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const documentsTable = "documents"

var textType = map[string]string{dialect.Postgres: "text"}

var (
	documentColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "filename", Type: field.TypeString, SchemaType: textType},
		{Name: "content_hash", Type: field.TypeString, Size: 64},
		{Name: "size_bytes", Type: field.TypeInt64},
		{Name: "mime_type", Type: field.TypeString, Size: 128},
		{Name: "storage_key", Type: field.TypeString, SchemaType: textType},
		{Name: "uploaded_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "progress", Type: field.TypeInt, Default: 0},
		{Name: "run_id", Type: field.TypeUUID, Nullable: true},
		{Name: "run_started_at", Type: field.TypeTime, Nullable: true},
		{Name: "error_message", Type: field.TypeString, Nullable: true, SchemaType: textType},
		{Name: "overall_score", Type: field.TypeFloat64, Nullable: true},
		{Name: "options", Type: field.TypeJSON, Nullable: true},
		{Name: "result", Type: field.TypeJSON, Nullable: true},
		{Name: "processing", Type: field.TypeJSON, Nullable: true},
	}
	// DocumentsTable is the only table the store owns.
	DocumentsTable = &schema.Table{
		Name:       documentsTable,
		Columns:    documentColumns,
		PrimaryKey: []*schema.Column{documentColumns[0]},
		Indexes: []*schema.Index{
			{Name: "documents_content_hash", Columns: []*schema.Column{documentColumns[2]}},
			{Name: "documents_status_uploaded_at", Columns: []*schema.Column{documentColumns[8], documentColumns[6]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{DocumentsTable}
)

// Migrate creates or updates the schema in place.
func (d *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	m, err := schema.NewMigrate(d.drv)
	if err != nil {
		return err
	}
	if err := m.Create(ctx, Tables...); err != nil {
		logger.Error("schema migration failed", "error", err)
		return err
	}
	logger.Info("schema migrated", "tables", len(Tables))
	return nil
}
