package mysql

import (
	"errors"
	"testing"

	drivermysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseDSN(t *testing.T) {
	dsn, err := normaliseDSN("user:pw@tcp(db:3306)/stock")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")

	_, err = normaliseDSN("not a dsn")
	assert.Error(t, err)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(&drivermysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicateKey(&drivermysql.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateKey(errors.New("boom")))
}
