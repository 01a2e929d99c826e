package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/nodrake/ndh/internal/models"
	"github.com/nodrake/ndh/internal/shared"
)

// batchColumns is the column list shared by every batch SELECT.
const batchColumns = `
	id, sequence, batch_id, status, dry_run, providers,
	total_items, completed_items, failed_items, skipped_items,
	options, rolled_back, error_message, started_at, completed_at,
	created_at, updated_at, deleted_at
`

// BatchRepository implements models.Repository[*models.BatchRecord] for the
// enforcement history archive.
type BatchRepository struct {
	db *sql.DB
}

// NewBatchRepository creates a new BatchRepository with the given database connection
func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch record with a generated ID and sequence
func (r *BatchRepository) Create(record *models.BatchRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "batches")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	record.SetID(shared.GenerateID())

	query := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		record.ID(),
		sequence,
		record.BatchID(),
		record.Status(),
		record.DryRun(),
		record.ProviderList(),
		record.TotalItems(),
		record.CompletedItems(),
		record.FailedItems(),
		record.SkippedItems(),
		nullable(record.Options()),
		record.RolledBack(),
		nullable(record.ErrorMessage()),
		record.StartedAt(),
		record.CompletedAt(),
		record.CreatedAt(),
		record.UpdatedAt(),
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch record: %w", err)
	}

	return nil
}

// Get retrieves a batch record by local ID, excluding soft-deleted records
func (r *BatchRepository) Get(id string) (*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ? AND deleted_at IS NULL`
	record, err := scanBatch(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrBatchNotFound, id)
	}
	return record, err
}

// GetByBatchID retrieves a batch record by the server-assigned batch ID
func (r *BatchRepository) GetByBatchID(batchID string) (*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE batch_id = ? AND deleted_at IS NULL`
	record, err := scanBatch(r.db.QueryRow(query, batchID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrBatchNotFound, batchID)
	}
	return record, err
}

// Update modifies an existing batch record
func (r *BatchRepository) Update(record *models.BatchRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE batches
		SET status = ?, total_items = ?, completed_items = ?, failed_items = ?,
			skipped_items = ?, options = ?, rolled_back = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		record.Status(),
		record.TotalItems(),
		record.CompletedItems(),
		record.FailedItems(),
		record.SkippedItems(),
		nullable(record.Options()),
		record.RolledBack(),
		nullable(record.ErrorMessage()),
		record.StartedAt(),
		record.CompletedAt(),
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update batch record: %w", err)
	}

	return requireRows(result, shared.ErrBatchNotFound, record.ID())
}

// MarkRolledBack flags the record for a server batch as rolled back
func (r *BatchRepository) MarkRolledBack(batchID string) error {
	query := `
		UPDATE batches
		SET rolled_back = 1, updated_at = ?
		WHERE batch_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), batchID)
	if err != nil {
		return fmt.Errorf("failed to mark batch rolled back: %w", err)
	}

	return requireRows(result, shared.ErrBatchNotFound, batchID)
}

// Delete soft-deletes a batch record by local ID
func (r *BatchRepository) Delete(id string) error {
	query := `
		UPDATE batches
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete batch record: %w", err)
	}

	return requireRows(result, shared.ErrBatchNotFound, id)
}

// List retrieves batch records matching the given criteria, newest first.
// Supported criteria: status (string), provider (string), rolled_back
// (bool), limit (int).
func (r *BatchRepository) List(criteria map[string]any) ([]*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE deleted_at IS NULL`
	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if provider, ok := criteria["provider"].(string); ok && provider != "" {
		query += " AND (providers = ? OR providers LIKE ? OR providers LIKE ? OR providers LIKE ?)"
		args = append(args, provider, provider+",%", "%,"+provider, "%,"+provider+",%")
	}

	if rolledBack, ok := criteria["rolled_back"].(bool); ok {
		query += " AND rolled_back = ?"
		args = append(args, rolledBack)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch records: %w", err)
	}
	defer rows.Close()

	var records []*models.BatchRecord
	for rows.Next() {
		record, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// scanBatch reads one batch row from a [sql.Row] or [sql.Rows].
func scanBatch(row rowScanner) (*models.BatchRecord, error) {
	var (
		id             string
		sequence       int
		batchID        string
		status         string
		dryRun         bool
		providers      string
		totalItems     int
		completedItems int
		failedItems    int
		skippedItems   int
		options        sql.NullString
		rolledBack     bool
		errorMessage   sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
		deletedAt      sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &batchID, &status, &dryRun, &providers,
		&totalItems, &completedItems, &failedItems, &skippedItems,
		&options, &rolledBack, &errorMessage, &startedAt, &completedAt,
		&createdAt, &updatedAt, &deletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch record: %w", err)
	}

	record := models.NewBatchRecord(sequence, batchID, status, dryRun, nil)
	record.SetID(id)
	record.SetProviderList(providers)
	record.SetSummary(totalItems, completedItems, failedItems, skippedItems)
	record.SetRolledBack(rolledBack)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)

	if options.Valid {
		record.SetOptions(options.String)
	}
	if errorMessage.Valid {
		record.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		record.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		record.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}

	return record, nil
}

// nullable converts empty strings to NULL for optional text columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requireRows converts zero affected rows into a not-found error.
func requireRows(result sql.Result, sentinel error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return nil
}
