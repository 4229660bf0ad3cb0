package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// HasValidExtension returns true if the given filename has one of the valid extensions.
func HasValidExtension(filename string, validExtensions []string) bool {
	if len(validExtensions) == 0 {
		return true
	}
	filename = strings.ToLower(filename)
	for _, validExtension := range validExtensions {
		if strings.HasSuffix(filename, validExtension) {
			return true
		}
	}
	return false
}

// ExpandPath expands a path to avoid `~`.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "getting user home dir")
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
}

// CreateDirectoryIfNotExist creates a directory if it doesn't already exist.
func CreateDirectoryIfNotExist(directory string) error {
	ok, err := DirectoryExists(directory)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return errors.Wrap(err, "creating directory")
	}
	return nil
}

// DirectoryExists returns true if the specified directory exists.
func DirectoryExists(directory string) (bool, error) {
	info, err := os.Stat(directory)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "checking directory existence")
	}
	return info.IsDir(), nil
}

// Exists returns true if the specified file exists.
func Exists(filePath string) (bool, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "checking file existence")
	}
	return !info.IsDir(), nil
}

// WriteFile writes content to path, creating its directory if needed. Existing files are
// only replaced if overwrite is set.
func WriteFile(path string, content []byte, overwrite bool) error {
	if !overwrite {
		exists, err := Exists(path)
		if err != nil {
			return err
		}
		if exists {
			return errors.Errorf("%s already exists", path)
		}
	}
	if err := CreateDirectoryIfNotExist(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}
