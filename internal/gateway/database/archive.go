package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"cyclemap/internal/market"
)

// Archive 月记录的 SQLite 归档：seedtool 每次写种子时同步落库，
// 服务端在种子文件缺失时作为历史数据的兜底来源。
type Archive struct {
	db *sql.DB
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS month_rows (
    month_key  TEXT PRIMARY KEY,
    open       REAL NOT NULL,
    close      REAL NOT NULL,
    source     TEXT NOT NULL DEFAULT '',
    is_closed  INTEGER NOT NULL DEFAULT 1,
    updated_at TEXT NOT NULL
);`

func NewArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开归档数据库失败: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("初始化归档表失败: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// UpsertRows 覆盖写入一批月记录
func (a *Archive) UpsertRows(ctx context.Context, rows []market.MonthRecord) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO month_rows (month_key, open, close, source, is_closed, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(month_key) DO UPDATE SET
    open = excluded.open,
    close = excluded.close,
    source = excluded.source,
    is_closed = excluded.is_closed,
    updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, row := range rows {
		if row.MonthKey == "" {
			continue
		}
		closed := 0
		if row.IsClosed {
			closed = 1
		}
		if _, err := stmt.ExecContext(ctx, row.MonthKey, row.Open, row.Close, row.Source, closed, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRows 按月份键升序读取全部归档记录
func (a *Archive) LoadRows(ctx context.Context) ([]market.MonthRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT month_key, open, close, source, is_closed FROM month_rows ORDER BY month_key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.MonthRecord
	for rows.Next() {
		var rec market.MonthRecord
		var closed int
		if err := rows.Scan(&rec.MonthKey, &rec.Open, &rec.Close, &rec.Source, &closed); err != nil {
			return nil, err
		}
		rec.IsClosed = closed != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}
