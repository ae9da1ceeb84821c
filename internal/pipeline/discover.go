package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Discover lists the direct entries of inputDir and returns the paths of
// regular files (symlinks are followed), sorted by name. Hidden files are
// included; directories, including the output directory, are not.
func Discover(inputDir string) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(inputDir, e.Name())
		if !isRegular(path, e) {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func isRegular(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type().IsRegular()
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
