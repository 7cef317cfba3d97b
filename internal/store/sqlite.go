// 包 store 提供可选的 SQLite 存档：每次运行按频道整体替换该频道的记录。
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"go-subpull/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// ChannelStats 为单个频道的存档统计。
type ChannelStats struct {
	Channel  string
	Records  int
	Earliest int64
	Latest   int64
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
            channel TEXT NOT NULL,
            seq INTEGER NOT NULL,
            created_utc INTEGER NOT NULL,
            id TEXT,
            payload TEXT NOT NULL,
            fetched_at TIMESTAMP,
            PRIMARY KEY (channel, seq)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(channel, created_utc);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Reset 清空存档表（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	return nil
}

// ReplaceChannel 在一个事务内删除频道旧记录并按顺序写入新记录。
func (s *SQLite) ReplaceChannel(ctx context.Context, channel string, recs []model.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM submissions WHERE channel = ?`, channel); err != nil {
		return fmt.Errorf("delete channel %s: %w", channel, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO submissions(channel, seq, created_utc, id, payload, fetched_at) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	now := time.Now().UTC()
	for i, r := range recs {
		ts, cerr := r.CreatedUTC()
		if cerr != nil {
			return fmt.Errorf("record %d: %w", i, cerr)
		}
		b, merr := json.Marshal(r)
		if merr != nil {
			return fmt.Errorf("marshal record %d: %w", i, merr)
		}
		if _, err = stmt.ExecContext(ctx, channel, i, ts, r.ID(), string(b), now); err != nil {
			return fmt.Errorf("insert %s/%d: %w", channel, i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListChannel 按写入顺序返回频道的存档记录。
func (s *SQLite) ListChannel(ctx context.Context, channel string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM submissions WHERE channel = ? ORDER BY seq`, channel)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()
	var out []model.Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan submissions: %w", err)
		}
		var r model.Record
		dec := json.NewDecoder(strings.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

// Stats 返回各频道的记录数与时间范围，按频道名排序。
func (s *SQLite) Stats(ctx context.Context) ([]ChannelStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel, COUNT(1), MIN(created_utc), MAX(created_utc)
        FROM submissions GROUP BY channel ORDER BY channel`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	var out []ChannelStats
	for rows.Next() {
		var st ChannelStats
		if err := rows.Scan(&st.Channel, &st.Records, &st.Earliest, &st.Latest); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return out, nil
}
