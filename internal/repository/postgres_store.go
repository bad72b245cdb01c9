package repository

import (
	"context"
	"database/sql"

	"nest-data/common/database"
)

// PostgresStore 基于 *sql.DB 的 Store
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建 Postgres Store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Repos 返回直接使用连接池的仓储
func (s *PostgresStore) Repos() Repos {
	return newPostgresRepos(s.db)
}

// WithinTx fn 返回错误或 panic 时回滚
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Repos) error) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(newPostgresRepos(tx))
	})
}

func newPostgresRepos(q Querier) Repos {
	return Repos{
		Profiles:   NewPostgresProfilesRepository(q),
		Shelters:   NewPostgresSheltersRepository(q),
		Requests:   NewPostgresRequestsRepository(q),
		Jobs:       NewPostgresJobsRepository(q),
		Residents:  NewPostgresResidentsRepository(q),
		Medical:    NewPostgresMedicalRepository(q),
		NGOMedical: NewPostgresNGOMedicalRepository(q),
		SyncLogs:   NewPostgresSyncLogsRepository(q),
		Choices:    NewPostgresChoicesRepository(q),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}
