package vessel

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgResolver struct {
	pool *pgxpool.Pool
}

// NewPgResolver returns a Resolver backed by the vessels tables.
func NewPgResolver(pool *pgxpool.Pool) Resolver {
	return &pgResolver{pool: pool}
}

func (r *pgResolver) ResolveKeys(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT label, label FROM vessels WHERE label = ANY($1)
		UNION
		SELECT sample_key, label FROM vessels WHERE sample_key = ANY($1)`,
		keys)
	if err != nil {
		return nil, fmt.Errorf("resolve vessel keys: %w", err)
	}
	defer rows.Close()

	resolved := make(map[string]string)
	for rows.Next() {
		var key, label string
		if err := rows.Scan(&key, &label); err != nil {
			return nil, err
		}
		resolved[key] = label
	}
	return resolved, rows.Err()
}

func (r *pgResolver) MetadataValues(ctx context.Context, label, key string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.value
		FROM vessel_metadata m
		JOIN vessels v ON v.id = m.vessel_id
		WHERE v.label = $1 AND m.key = $2
		ORDER BY m.id ASC`, label, key)
	if err != nil {
		return nil, fmt.Errorf("vessel metadata %s/%s: %w", label, key, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
