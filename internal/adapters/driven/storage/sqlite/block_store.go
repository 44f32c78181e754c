package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/core/ports/driven"
)

// Ensure blockStore implements the interface.
var _ driven.BlockStore = (*blockStore)(nil)

// blockStore is the append-only block log. Section paths are stored as
// JSON arrays; seq preserves document order.
type blockStore struct {
	store *Store
}

func (b *blockStore) PutBlocks(ctx context.Context, blocks []domain.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put blocks: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM blocks`,
	).Scan(&next); err != nil {
		return fmt.Errorf("next block seq: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO blocks (id, kind, section_path, page_num, content, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			section_path = excluded.section_path,
			page_num = excluded.page_num,
			content = excluded.content`)
	if err != nil {
		return fmt.Errorf("prepare put blocks: %w", err)
	}
	defer stmt.Close()

	for i, blk := range blocks {
		path, err := json.Marshal(blk.SectionPath)
		if err != nil {
			return fmt.Errorf("marshal section path: %w", err)
		}
		var page any
		if blk.PageNum != nil {
			page = *blk.PageNum
		}
		if _, err := stmt.ExecContext(ctx, blk.ID, string(blk.Kind), string(path), page, blk.Content, next+i); err != nil {
			return fmt.Errorf("put block %s: %w", blk.ID, err)
		}
	}

	return tx.Commit()
}

func (b *blockStore) GetBlocks(ctx context.Context, ids []string) ([]domain.Block, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return b.query(ctx,
		`SELECT id, kind, section_path, page_num, content FROM blocks
		 WHERE id IN (`+placeholders+`) ORDER BY seq`, args...)
}

func (b *blockStore) AllBlocks(ctx context.Context) ([]domain.Block, error) {
	return b.query(ctx,
		`SELECT id, kind, section_path, page_num, content FROM blocks ORDER BY seq`)
}

func (b *blockStore) query(ctx context.Context, q string, args ...any) ([]domain.Block, error) {
	rows, err := b.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var out []domain.Block
	for rows.Next() {
		var (
			blk  domain.Block
			kind string
			path string
			page sql.NullInt64
		)
		if err := rows.Scan(&blk.ID, &kind, &path, &page, &blk.Content); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blk.Kind = domain.BlockKind(kind)
		if err := json.Unmarshal([]byte(path), &blk.SectionPath); err != nil {
			return nil, fmt.Errorf("unmarshal section path: %w", err)
		}
		if page.Valid {
			p := int(page.Int64)
			blk.PageNum = &p
		}
		out = append(out, blk)
	}
	return out, rows.Err()
}
