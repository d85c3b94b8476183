package dbfacade_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/torsten-rupp/barindex/internal/dbfacade"
)

func TestFilterAndAccumulatesArgs(t *testing.T) {
	f := dbfacade.NewFilter().And("type = ?", "file").And("size > ?", 1024)
	assert.Equal(t, "type = ? AND (size > ?)", f.Clause())
	assert.Equal(t, []interface{}{"file", 1024}, f.Args())
}

func TestFilterOrJoinsWithParens(t *testing.T) {
	f := dbfacade.NewFilter().And("a = ?", 1).Or("b = ?", 2)
	assert.Equal(t, "a = ? OR (b = ?)", f.Clause())
}

func TestFilterInWithEmptyValuesIsAlwaysFalse(t *testing.T) {
	f := dbfacade.NewFilter().In("id", nil)
	assert.Equal(t, "1=0", f.Clause())
}

func TestFilterInBuildsPlaceholderList(t *testing.T) {
	f := dbfacade.NewFilter().In("id", []interface{}{1, 2, 3})
	assert.Equal(t, "id IN (?, ?, ?)", f.Clause())
	assert.Equal(t, []interface{}{1, 2, 3}, f.Args())
}
