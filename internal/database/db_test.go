package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_EmptyDatabaseURL(t *testing.T) {
	db, err := New("")
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "DATABASE_URL environment variable not set")
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		url    string
		driver string
	}{
		{"root:pw@tcp(localhost:3306)/cotador", "mysql"},
		{"postgres://user:pw@localhost:5432/cotador", "postgres"},
		{"postgresql://user:pw@localhost:5432/cotador", "postgres"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.driver, driverFor(tt.url), tt.url)
	}
}
