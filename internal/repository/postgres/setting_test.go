package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSettingRepository(t *testing.T) {
	db := &Connection{}
	repo := NewSettingRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}
