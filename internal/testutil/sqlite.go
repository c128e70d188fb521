package testutil

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/repository/sqlite"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// NewSQLiteStore opens an in-memory store private to the running test.
func NewSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()

	db, err := sqlite.Open(fmt.Sprintf("file:store_%s?mode=memory&cache=shared", unsafeName.ReplaceAllString(t.Name(), "_")))
	require.NoError(t, err)

	store := sqlite.NewStore(db)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
