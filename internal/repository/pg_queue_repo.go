package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/limshub/vessel-queue/internal/domain"
)

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

const groupingColumns = `id, queue_type, sort_order, status, origin_message, origin, created_at, updated_at`

const entryColumns = `id, grouping_id, vessel_label, status, completed_by, completed_at, excluded_at, created_at`

func (r *pgQueueRepository) FindQueueByType(ctx context.Context, qt domain.QueueType) (*domain.Queue, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, queue_type, created_at FROM queues WHERE queue_type = $1`, qt)

	var q domain.Queue
	err := row.Scan(&q.ID, &q.QueueType, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQueueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find queue %s: %w", qt, err)
	}
	return &q, nil
}

func (r *pgQueueRepository) FindActiveGroupings(ctx context.Context, qt domain.QueueType) ([]*domain.Grouping, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+groupingColumns+`
		FROM queue_groupings
		WHERE queue_type = $1 AND status IN ('active','repeat')
		ORDER BY sort_order ASC`, qt)
	if err != nil {
		return nil, fmt.Errorf("find active groupings: %w", err)
	}
	defer rows.Close()
	return scanGroupings(rows)
}

func (r *pgQueueRepository) FindGroupingByID(ctx context.Context, id int64) (*domain.Grouping, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+groupingColumns+` FROM queue_groupings WHERE id = $1`, id)

	g, err := scanGrouping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGroupingNotFound
	}
	return g, err
}

func (r *pgQueueRepository) FindGroupingsWithEntries(ctx context.Context, qt domain.QueueType, activeOnly bool) ([]domain.GroupingWithEntries, error) {
	query := `SELECT ` + groupingColumns + ` FROM queue_groupings WHERE queue_type = $1`
	if activeOnly {
		query += ` AND status IN ('active','repeat')`
	}
	query += ` ORDER BY sort_order ASC`

	rows, err := r.pool.Query(ctx, query, qt)
	if err != nil {
		return nil, fmt.Errorf("find groupings: %w", err)
	}
	defer rows.Close()

	groupings, err := scanGroupings(rows)
	if err != nil {
		return nil, err
	}
	if len(groupings) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(groupings))
	index := make(map[int64]int, len(groupings))
	result := make([]domain.GroupingWithEntries, len(groupings))
	for i, g := range groupings {
		ids[i] = g.ID
		index[g.ID] = i
		result[i] = domain.GroupingWithEntries{Grouping: *g}
	}

	entryRows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM queue_entries
		WHERE grouping_id = ANY($1)
		ORDER BY id ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("find grouping entries: %w", err)
	}
	defer entryRows.Close()

	entries, err := scanEntries(entryRows)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		i := index[e.GroupingID]
		result[i].Entries = append(result[i].Entries, *e)
	}
	return result, nil
}

func (r *pgQueueRepository) FindEntriesByGroupingID(ctx context.Context, groupingID int64) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM queue_entries WHERE grouping_id = $1 ORDER BY id ASC`, groupingID)
	if err != nil {
		return nil, fmt.Errorf("find entries for grouping %d: %w", groupingID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *pgQueueRepository) FindActiveEntriesByVesselLabels(ctx context.Context, qt domain.QueueType, labels []string) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+joinedEntryColumns+`
		FROM queue_entries e
		JOIN queue_groupings g ON g.id = e.grouping_id
		WHERE g.queue_type = $1 AND e.status = 'active' AND e.vessel_label = ANY($2)`,
		qt, labels)
	if err != nil {
		return nil, fmt.Errorf("find active entries by labels: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *pgQueueRepository) FindEntriesByVesselLabels(ctx context.Context, qt domain.QueueType, labels []string) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+joinedEntryColumns+`
		FROM queue_entries e
		JOIN queue_groupings g ON g.id = e.grouping_id
		WHERE g.queue_type = $1 AND e.vessel_label = ANY($2)
		ORDER BY e.id DESC`,
		qt, labels)
	if err != nil {
		return nil, fmt.Errorf("find entries by labels: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *pgQueueRepository) CreateGrouping(ctx context.Context, g *domain.Grouping, vesselLabels []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	// Tail position: one past the current maximum over groupings still in
	// the order. COALESCE covers the empty-queue case.
	err = tx.QueryRow(ctx, `
		INSERT INTO queue_groupings (queue_type, sort_order, status, origin_message, origin, created_at, updated_at)
		SELECT $1,
		       COALESCE(MAX(sort_order), 0) + 1,
		       $2, $3, $4, $5, $5
		FROM queue_groupings
		WHERE queue_type = $1 AND status IN ('active','repeat')
		RETURNING id, sort_order`,
		g.QueueType, g.Status, g.OriginMessage, g.Origin, now,
	).Scan(&g.ID, &g.SortOrder)
	if err != nil {
		return fmt.Errorf("insert grouping: %w", err)
	}

	for _, label := range vesselLabels {
		_, err = tx.Exec(ctx, `
			INSERT INTO queue_entries (grouping_id, vessel_label, status, created_at)
			VALUES ($1, $2, 'active', $3)`,
			g.ID, label, now)
		if err != nil {
			return fmt.Errorf("insert entry %s: %w", label, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit grouping: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) ApplySortOrders(ctx context.Context, orders map[int64]int64) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for id, order := range orders {
		_, err = tx.Exec(ctx, `
			UPDATE queue_groupings SET sort_order = $1, updated_at = $2 WHERE id = $3`,
			order, now, id)
		if err != nil {
			return fmt.Errorf("renumber grouping %d: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit renumber: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) UpdateSortOrder(ctx context.Context, groupingID, sortOrder int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_groupings SET sort_order = $1, updated_at = $2 WHERE id = $3`,
		sortOrder, time.Now().UTC(), groupingID)
	return err
}

func (r *pgQueueRepository) CompleteEntries(ctx context.Context, entryIDs []int64, completedBy string, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_entries
		SET status = 'completed', completed_by = $1, completed_at = $2
		WHERE id = ANY($3) AND status = 'active'`,
		completedBy, at, entryIDs)
	if err != nil {
		return fmt.Errorf("complete entries: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) ExcludeEntries(ctx context.Context, entryIDs []int64, at time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_entries
		SET status = 'excluded', excluded_at = $1
		WHERE id = ANY($2) AND status = 'active'`,
		at, entryIDs)
	if err != nil {
		return fmt.Errorf("exclude entries: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) SettleGroupingStatus(ctx context.Context, groupingID int64, to domain.GroupingStatus) (bool, error) {
	// The NOT EXISTS guard makes the rollup atomic: the grouping only leaves
	// the order when its last Active entry is gone.
	tag, err := r.pool.Exec(ctx, `
		UPDATE queue_groupings
		SET status = $1, updated_at = $2
		WHERE id = $3
		  AND status IN ('active','repeat')
		  AND NOT EXISTS (
			SELECT 1 FROM queue_entries WHERE grouping_id = $3 AND status = 'active')`,
		to, time.Now().UTC(), groupingID)
	if err != nil {
		return false, fmt.Errorf("settle grouping %d: %w", groupingID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgQueueRepository) RenameGrouping(ctx context.Context, groupingID int64, name string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE queue_groupings SET origin_message = $1, updated_at = $2 WHERE id = $3`,
		name, time.Now().UTC(), groupingID)
	if err != nil {
		return fmt.Errorf("rename grouping %d: %w", groupingID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGroupingNotFound
	}
	return nil
}

func (r *pgQueueRepository) RequeueGrouping(ctx context.Context, groupingID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		UPDATE queue_groupings g
		SET status = 'repeat',
		    sort_order = (
			SELECT COALESCE(MAX(sort_order), 0) + 1
			FROM queue_groupings
			WHERE queue_type = g.queue_type AND status IN ('active','repeat')),
		    updated_at = $1
		WHERE g.id = $2 AND g.status = 'completed'`,
		now, groupingID)
	if err != nil {
		return fmt.Errorf("requeue grouping %d: %w", groupingID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotRequeueable
	}

	_, err = tx.Exec(ctx, `
		UPDATE queue_entries
		SET status = 'active', completed_by = NULL, completed_at = NULL
		WHERE grouping_id = $1 AND status = 'completed'`, groupingID)
	if err != nil {
		return fmt.Errorf("reactivate entries for grouping %d: %w", groupingID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit requeue: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) QueueCounts(ctx context.Context) ([]domain.QueueCounts, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.queue_type,
		       COUNT(DISTINCT g.id) FILTER (WHERE g.status IN ('active','repeat')),
		       COUNT(e.id) FILTER (WHERE e.status = 'active')
		FROM queue_groupings g
		LEFT JOIN queue_entries e ON e.grouping_id = g.id
		GROUP BY g.queue_type`)
	if err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}
	defer rows.Close()

	var counts []domain.QueueCounts
	for rows.Next() {
		var c domain.QueueCounts
		if err := rows.Scan(&c.QueueType, &c.ActiveGroupings, &c.ActiveEntries); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ---- helpers ----

// joinedEntryColumns qualifies every entry column with the alias used in
// the join queries above.
const joinedEntryColumns = `e.id, e.grouping_id, e.vessel_label, e.status,
		       e.completed_by, e.completed_at, e.excluded_at, e.created_at`

func scanGrouping(row pgx.Row) (*domain.Grouping, error) {
	var g domain.Grouping
	err := row.Scan(
		&g.ID, &g.QueueType, &g.SortOrder, &g.Status,
		&g.OriginMessage, &g.Origin, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func scanGroupings(rows pgx.Rows) ([]*domain.Grouping, error) {
	var result []*domain.Grouping
	for rows.Next() {
		g, err := scanGrouping(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var e domain.Entry
	err := row.Scan(
		&e.ID, &e.GroupingID, &e.VesselLabel, &e.Status,
		&e.CompletedBy, &e.CompletedAt, &e.ExcludedAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows pgx.Rows) ([]*domain.Entry, error) {
	var result []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
