package provision

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractFirstMatch writes the first non-directory entry of the ZIP at
// zipPath whose name contains tool into destDir, preserving the entry's
// relative path, and returns the written path. Later matches are ignored.
func ExtractFirstMatch(zipPath, destDir, tool string) (string, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file == nil || file.FileInfo().IsDir() || strings.HasSuffix(file.Name, "/") {
			continue
		}
		if !strings.Contains(file.Name, tool) {
			continue
		}

		cleanName := filepath.Clean(filepath.FromSlash(file.Name))
		targetPath := filepath.Join(destDir, cleanName)
		if !isWithinBaseDir(destDir, targetPath) {
			return "", fmt.Errorf("%w: %s", ErrUnsafeEntry, file.Name)
		}
		if err := writeEntry(file, targetPath); err != nil {
			return "", fmt.Errorf("extract %s: %w", file.Name, err)
		}
		return targetPath, nil
	}

	return "", fmt.Errorf("%w: %q in %s", ErrNoMatchingEntry, tool, filepath.Base(zipPath))
}

func writeEntry(file *zip.File, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}

	// Archives built on Windows carry no exec bits.
	mode := file.Mode().Perm() | 0o755
	dst, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		_ = src.Close()
		return err
	}

	_, copyErr := io.Copy(dst, src)
	srcCloseErr := src.Close()
	dstCloseErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	if srcCloseErr != nil {
		return srcCloseErr
	}
	if dstCloseErr != nil {
		return dstCloseErr
	}
	return os.Chmod(targetPath, mode)
}

func isWithinBaseDir(baseDir, targetPath string) bool {
	relative, err := filepath.Rel(filepath.Clean(baseDir), filepath.Clean(targetPath))
	if err != nil {
		return false
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator)) && relative != "."
}
