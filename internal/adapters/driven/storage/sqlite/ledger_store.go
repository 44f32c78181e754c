package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure ledgerStore implements the interface.
var _ driven.LedgerStore = (*ledgerStore)(nil)

// ledgerStore persists fact rows with upsert-by-id semantics.
type ledgerStore struct {
	store *Store
}

const factRowColumns = `row_id, entity_id, entity_name_raw, metric_name, related_entity_id,
	value, unit, scale_factor, period, doc_section, source_block_id, nuance_note, confidence`

func (l *ledgerStore) UpsertRows(ctx context.Context, rows []domain.FactRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := l.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fact_rows (`+factRowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(row_id) DO UPDATE SET
			entity_id = excluded.entity_id,
			entity_name_raw = excluded.entity_name_raw,
			metric_name = excluded.metric_name,
			related_entity_id = excluded.related_entity_id,
			value = excluded.value,
			unit = excluded.unit,
			scale_factor = excluded.scale_factor,
			period = excluded.period,
			doc_section = excluded.doc_section,
			source_block_id = excluded.source_block_id,
			nuance_note = excluded.nuance_note,
			confidence = excluded.confidence`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.RowID, r.EntityID, r.EntityNameRaw, r.MetricName, nullString(r.RelatedEntityID),
			nullFloat(r.Value), r.Unit, r.ScaleFactor, r.Period, r.DocSection,
			r.SourceBlockID, nullString(r.NuanceNote), r.Confidence)
		if err != nil {
			return fmt.Errorf("upsert row %s: %w", r.RowID, err)
		}
	}

	return tx.Commit()
}

// Filter applies the structured ledger filter. Metric keywords first
// try exact membership; when that matches nothing, the query falls back
// to case-insensitive substring match, per the retrieval contract.
func (l *ledgerStore) Filter(ctx context.Context, f domain.LedgerFilter) ([]domain.FactRow, error) {
	base, args := filterConditions(f)

	if len(f.MetricKeywords) > 0 {
		exact := append([]string{}, base...)
		exactArgs := append([]any{}, args...)

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.MetricKeywords)), ",")
		exact = append(exact, "metric_name IN ("+placeholders+")")
		for _, kw := range f.MetricKeywords {
			exactArgs = append(exactArgs, kw)
		}

		rows, err := l.query(ctx, exact, exactArgs)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return rows, nil
		}

		var likes []string
		for _, kw := range f.MetricKeywords {
			likes = append(likes, "LOWER(metric_name) LIKE ?")
			args = append(args, "%"+strings.ToLower(kw)+"%")
		}
		base = append(base, "("+strings.Join(likes, " OR ")+")")
	}

	return l.query(ctx, base, args)
}

func (l *ledgerStore) RowsBySourceBlocks(ctx context.Context, blockIDs []string) ([]domain.FactRow, error) {
	if len(blockIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(blockIDs)), ",")
	args := make([]any, len(blockIDs))
	for i, id := range blockIDs {
		args[i] = id
	}
	return l.query(ctx, []string{"source_block_id IN (" + placeholders + ")"}, args)
}

func (l *ledgerStore) AllRows(ctx context.Context) ([]domain.FactRow, error) {
	return l.query(ctx, nil, nil)
}

func (l *ledgerStore) Close() error {
	return nil // The shared Store owns the connection.
}

// filterConditions builds the WHERE clauses shared by both metric
// passes: entity membership and year substring match on the free-form
// period label.
func filterConditions(f domain.LedgerFilter) ([]string, []any) {
	var (
		conds []string
		args  []any
	)

	if len(f.EntityIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.EntityIDs)), ",")
		conds = append(conds, "entity_id IN ("+placeholders+")")
		for _, id := range f.EntityIDs {
			args = append(args, id)
		}
	}

	if len(f.Years) > 0 {
		var likes []string
		for _, y := range f.Years {
			likes = append(likes, "period LIKE ?")
			args = append(args, "%"+y+"%")
		}
		conds = append(conds, "("+strings.Join(likes, " OR ")+")")
	}

	return conds, args
}

func (l *ledgerStore) query(ctx context.Context, conds []string, args []any) ([]domain.FactRow, error) {
	q := "SELECT " + factRowColumns + " FROM fact_rows"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY rowid"

	rows, err := l.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.FactRow
	for rows.Next() {
		var (
			r       domain.FactRow
			related sql.NullString
			value   sql.NullFloat64
			nuance  sql.NullString
		)
		if err := rows.Scan(
			&r.RowID, &r.EntityID, &r.EntityNameRaw, &r.MetricName, &related,
			&value, &r.Unit, &r.ScaleFactor, &r.Period, &r.DocSection,
			&r.SourceBlockID, &nuance, &r.Confidence,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		if related.Valid {
			r.RelatedEntityID = &related.String
		}
		if value.Valid {
			r.Value = &value.Float64
		}
		if nuance.Valid {
			r.NuanceNote = &nuance.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
