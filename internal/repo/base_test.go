package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type item struct {
	ID   int
	Name string
}

func TestSearchBuildsEscapedPredicate(t *testing.T) {
	where, args := Search([]string{"name", "code"}, "  50%_Off ")
	assert.Equal(t, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(code) LIKE ? ESCAPE '\')`, where)
	require.Len(t, args, 2)
	assert.Equal(t, `%50\%\_off%`, args[0])

	where, args = Search([]string{"name"}, "   ")
	assert.Empty(t, where)
	assert.Nil(t, args)
}

func TestSearchAndLockedOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:repo_base?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&item{}))
	require.NoError(t, db.Create(&[]item{{Name: "ThinkPad X1"}, {Name: "Dell 50%"}, {Name: "Mouse"}}).Error)

	base := NewBase(db)
	ctx := context.Background()

	where, args := Search([]string{"name"}, "think")
	var found []item
	require.NoError(t, base.Locked(ctx).Where(where, args...).Find(&found).Error)
	require.Len(t, found, 1)
	assert.Equal(t, "ThinkPad X1", found[0].Name)

	where, args = Search([]string{"name"}, "50%")
	found = nil
	require.NoError(t, base.DB(ctx).Where(where, args...).Find(&found).Error)
	require.Len(t, found, 1)
	assert.Equal(t, "Dell 50%", found[0].Name)
}
