package assets

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path"

	"github.com/automoto/convoy-mp/shared/leveldata"
)

//go:embed all:levels
var levelFS embed.FS

// LevelFS returns dir on disk when it exists, otherwise the embedded levels.
// The returned path is the directory to look in within the FS.
func LevelFS(dir string) (fs.FS, string) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir), "."
		}
	}
	return levelFS, "levels"
}

// LoadLevel loads the collision data of the named level.
func LoadLevel(dir, name string) (*leveldata.CollisionData, error) {
	if name == "" {
		return nil, errors.New("no level name")
	}
	fsys, root := LevelFS(dir)
	return leveldata.LoadCollisionData(fsys, path.Join(root, name+".tmx"))
}

// ListLevels returns the sorted names of every available level.
func ListLevels(dir string) ([]string, error) {
	fsys, root := LevelFS(dir)
	_, names, err := leveldata.LoadAllLevels(fsys, root)
	return names, err
}
