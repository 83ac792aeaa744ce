package versioning

import (
	"io/fs"
	"path"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func repositoryFS(id string, files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{
		ConfigFile:  {Data: []byte("repository_id: " + id + "\n")},
		VersionsDir: {Mode: fs.ModeDir | 0o755},
	}
	for name, text := range files {
		fsys[path.Join(VersionsDir, name)] = &fstest.MapFile{Data: []byte(text)}
	}
	return fsys
}

func testRepository(t *testing.T, id string, files map[string]string, opt ...Option) *Repository {
	t.Helper()
	repo, err := LoadRepositoryFS(repositoryFS(id, files), opt...)
	require.NoError(t, err)
	return repo
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}
