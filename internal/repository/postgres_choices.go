package repository

import (
	"context"
	"database/sql"
	"fmt"

	"nest-data/internal/domain"
)

// PostgresChoicesRepository AI 推荐选择 Repository 实现
type PostgresChoicesRepository struct {
	db Querier
}

// NewPostgresChoicesRepository 创建推荐选择 Repository
func NewPostgresChoicesRepository(db Querier) *PostgresChoicesRepository {
	return &PostgresChoicesRepository{db: db}
}

var _ ChoicesRepository = (*PostgresChoicesRepository)(nil)

// CreateChoice 记录一次选择
func (r *PostgresChoicesRepository) CreateChoice(ctx context.Context, c *domain.RecommendationChoice) (int64, error) {
	query := `
		INSERT INTO ai_recommendation_choices (
			profile_id, recommendation_type, resource_id, resource_name, score, chosen_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING choice_id
	`
	err := r.db.QueryRowContext(ctx, query, c.ProfileID, c.RecommendationType, c.ResourceID,
		c.ResourceName, c.Score, nullInt64(c.ChosenBy), c.CreatedAt).Scan(&c.ChoiceID)
	if err != nil {
		return 0, fmt.Errorf("failed to create recommendation choice: %w", err)
	}
	return c.ChoiceID, nil
}

// ListByProfile 档案的选择记录（created_at 倒序）
func (r *PostgresChoicesRepository) ListByProfile(ctx context.Context, profileID int64) ([]*domain.RecommendationChoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT choice_id, profile_id, recommendation_type, resource_id, resource_name, score, chosen_by, created_at
		FROM ai_recommendation_choices WHERE profile_id = $1 ORDER BY created_at DESC
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendation choices: %w", err)
	}
	defer rows.Close()

	var out []*domain.RecommendationChoice
	for rows.Next() {
		var c domain.RecommendationChoice
		var chosenBy sql.NullInt64
		if err := rows.Scan(&c.ChoiceID, &c.ProfileID, &c.RecommendationType, &c.ResourceID,
			&c.ResourceName, &c.Score, &chosenBy, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation choice: %w", err)
		}
		c.ChosenBy = int64Ptr(chosenBy)
		out = append(out, &c)
	}
	return out, rows.Err()
}
