package migrations

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_DeclaresAllTables(t *testing.T) {
	for _, table := range []string{
		"homeless_profiles", "shelters", "assignment_requests", "job_allocations",
		"shelter_residents", "shelter_medical_records", "medical_records",
		"data_sync_logs", "ai_recommendation_choices",
	} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, Schema, "available_beds >= 0 AND available_beds <= capacity")
}

func TestApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS homeless_profiles")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Apply(context.Background(), db))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	err = Apply(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}
