package emoji

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the file in an emoji set's directory that describes the set
const ManifestFile = "emoji.yaml"

var ErrSetNotFound = errors.New("emoji set not found")

// Set is an emoji set installed in the emoji directory
type Set struct {
	ID          string `yaml:"-"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Format      string `yaml:"format"`
	Count       int    `yaml:"count"`
}

func (s *Set) String() string {
	if s.Description == "" {
		return s.Name
	}
	return s.Name + " - " + s.Description
}

func loadSet(dir string, id string) (*Set, error) {
	set := &Set{ID: id}
	data, err := os.ReadFile(filepath.Join(dir, id, ManifestFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err = yaml.Unmarshal(data, set); err != nil {
			return nil, fmt.Errorf("unable to parse %s manifest: %w", id, err)
		}
	}
	if set.Name == "" {
		set.Name = id
	}
	if set.Format == "" {
		set.Format = "png"
	}
	set.Format = strings.ToLower(set.Format)
	return set, nil
}

// ListSets returns the emoji sets in dir, sorted by ID. Each subdirectory is a set. Sets with an invalid
// manifest are skipped and their errors are joined into the returned error
func ListSets(dir string) ([]Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var sets []Set
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		set, err := loadSet(dir, entry.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sets = append(sets, *set)
	}
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].ID < sets[j].ID
	})
	return sets, errors.Join(errs...)
}

// GetSet returns the emoji set with the given ID
func GetSet(dir string, id string) (*Set, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, ErrSetNotFound
	}
	info, err := os.Stat(filepath.Join(dir, id))
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, ErrSetNotFound
	} else if err != nil {
		return nil, err
	}
	return loadSet(dir, id)
}

// SetExists returns true if dir has an emoji set with the given ID
func SetExists(dir string, id string) bool {
	_, err := GetSet(dir, id)
	return err == nil
}
