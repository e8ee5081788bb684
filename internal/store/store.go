// 包 store：PostgreSQL 用量计数；仅记录查询次数，不保存任何选举数据
package store

import (
	"context"
	"database/sql"
	"strings"
	"turnout/internal/logger"

	_ "github.com/lib/pq"
)

// typeOther：非预设选举类型统一归入该桶，避免自由输入撑大计数表
const typeOther = "other"

type Store struct {
	db    *sql.DB
	known map[string]bool
}

// AttachDB：绑定已打开的连接；known 为允许单独计数的选举类型标签
func AttachDB(db *sql.DB, known ...string) *Store {
	k := make(map[string]bool, len(known))
	for _, s := range known {
		k[s] = true
	}
	return &Store{db: db, known: k}
}

func (s *Store) Close() error { return s.db.Close() }

// bucket：预设标签原样计数，其余归入 other
func (s *Store) bucket(electionType string) string {
	if s.known[electionType] {
		return electionType
	}
	return typeOther
}

// IncrQuery：递增累计、当日与按类型的查询计数，三条语句在同一事务内
func (s *Store) IncrQuery(ctx context.Context, electionType string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "UPDATE _turnout_stats_total SET total_queries=total_queries+1 WHERE id=1"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO _turnout_stats_daily(day, queries) VALUES(current_date, 1) ON CONFLICT (day) DO UPDATE SET queries=_turnout_stats_daily.queries+1"); err != nil {
		return err
	}
	b := s.bucket(electionType)
	if _, err := tx.ExecContext(ctx, "INSERT INTO _turnout_stats_type(election_type, queries) VALUES($1, 1) ON CONFLICT (election_type) DO UPDATE SET queries=_turnout_stats_type.queries+1", b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("stats_incr", "election_type", b)
	return nil
}

// Totals：累计、当日与按类型的查询次数
type Totals struct {
	Total  int64            `json:"total"`
	Today  int64            `json:"today"`
	ByType map[string]int64 `json:"by_type"`
}

func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	t := Totals{ByType: map[string]int64{}}
	if err := s.db.QueryRowContext(ctx, "SELECT total_queries FROM _turnout_stats_total WHERE id=1").Scan(&t.Total); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT queries FROM _turnout_stats_daily WHERE day=current_date").Scan(&t.Today); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, "SELECT election_type, queries FROM _turnout_stats_type ORDER BY election_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		t.ByType[strings.TrimSpace(k)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.L().Debug("stats_totals", "total", t.Total, "today", t.Today)
	return &t, nil
}
