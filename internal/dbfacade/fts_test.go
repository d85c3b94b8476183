package dbfacade_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/torsten-rupp/barindex/internal/dbfacade"
)

func TestGetFtsMatchStringSQLite(t *testing.T) {
	db := dbfacade.NewForBackend(dbfacade.SQLite)
	got := db.GetFtsMatchString("name", "foo bar")
	assert.Equal(t, "name MATCH 'foo* bar*'", got)
}

func TestGetFtsMatchStringMariaDB(t *testing.T) {
	db := dbfacade.NewForBackend(dbfacade.MariaDB)
	got := db.GetFtsMatchString("name", "foo bar")
	assert.Equal(t, "MATCH(name) AGAINST('foo* bar*' IN BOOLEAN MODE)", got)
}

func TestGetFtsMatchStringPostgreSQL(t *testing.T) {
	db := dbfacade.NewForBackend(dbfacade.PostgreSQL)
	got := db.GetFtsMatchString("name", "foo bar")
	assert.Equal(t, "name @@ to_tsquery('foo:* & bar:*')", got)
}

func TestGetFtsMatchStringCollapsesPunctuationToSeparators(t *testing.T) {
	db := dbfacade.NewForBackend(dbfacade.SQLite)
	got := db.GetFtsMatchString("name", "report-2024_final.pdf")
	assert.Equal(t, "name MATCH 'report* 2024* final* pdf*'", got)
}

func TestGetFtsMatchStringEmptyPatternMatchesEverything(t *testing.T) {
	db := dbfacade.NewForBackend(dbfacade.SQLite)
	got := db.GetFtsMatchString("name", "   ")
	assert.Equal(t, "1=1", got)
}
