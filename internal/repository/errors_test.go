package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapWriteErr(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "tags_owner_name_unique"}
	assert.ErrorIs(t, mapWriteErr(dup), ErrDuplicate)
	assert.ErrorIs(t, mapWriteErr(fmt.Errorf("insert: %w", dup)), ErrDuplicate)

	check := &pgconn.PgError{Code: "23514"}
	assert.Equal(t, check, mapWriteErr(check))

	other := errors.New("boom")
	assert.Equal(t, other, mapWriteErr(other))
	assert.NoError(t, mapWriteErr(nil))
}

func TestIsVideoSortField(t *testing.T) {
	for _, f := range []string{"addedAt", "title", "publishedAt", "channelTitle", "viewCount", "watchCount", "lastWatchedAt"} {
		assert.True(t, IsVideoSortField(f), f)
	}
	assert.False(t, IsVideoSortField("created_at; DROP TABLE videos"))
	assert.False(t, IsVideoSortField(""))
}

func TestContainsPattern(t *testing.T) {
	tests := map[string]string{
		"go":       "%go%",
		"100%":     `%100\%%`,
		"snake_ca": `%snake\_ca%`,
		`C:\dir`:   `%C:\\dir%`,
		"":         "%%",
	}
	for in, want := range tests {
		assert.Equal(t, want, containsPattern(in), in)
	}
}
