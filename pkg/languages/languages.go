package languages

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const fileExt = ".toml"

var (
	ErrLanguageNotFound = errors.New("language not found")
	ErrFileNotFound     = errors.New("language file not found")
	ErrInvalidFileName  = errors.New("invalid language file name")
)

// Pack is an installed language, a directory named by its BCP 47 tag holding TOML files of strings
type Pack struct {
	ID    string
	Tag   language.Tag
	Dir   string
	Files []string
}

// Name returns the English name of the language
func (p *Pack) Name() string {
	if name := display.English.Tags().Name(p.Tag); name != "" {
		return name
	}
	return p.ID
}

// NativeName returns the name of the language in the language itself
func (p *Pack) NativeName() string {
	if name := display.Self.Name(p.Tag); name != "" {
		return name
	}
	return p.Name()
}

// HasFile returns true if the language has a file with the given ID (file name without the extension)
func (p *Pack) HasFile(id string) bool {
	for _, file := range p.Files {
		if file == id {
			return true
		}
	}
	return false
}

// FilePath returns the path of the language file with the given ID
func (p *Pack) FilePath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", ErrInvalidFileName
	}
	if !p.HasFile(id) {
		return "", ErrFileNotFound
	}
	return filepath.Join(p.Dir, id+fileExt), nil
}

func loadPack(dir string, id string) (*Pack, error) {
	tag, err := language.Parse(id)
	if err != nil {
		return nil, err
	}
	packDir := filepath.Join(dir, id)
	entries, err := os.ReadDir(packDir)
	if err != nil {
		return nil, err
	}
	pack := &Pack{ID: id, Tag: tag, Dir: packDir}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		pack.Files = append(pack.Files, strings.TrimSuffix(entry.Name(), fileExt))
	}
	sort.Strings(pack.Files)
	return pack, nil
}

// List returns the language packs installed in dir, sorted by ID. Subdirectories that aren't
// valid language tags are skipped
func List(dir string) ([]Pack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var packs []Pack
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		pack, err := loadPack(dir, entry.Name())
		if err != nil {
			continue
		}
		packs = append(packs, *pack)
	}
	sort.Slice(packs, func(i, j int) bool {
		return packs[i].ID < packs[j].ID
	})
	return packs, nil
}

// Get returns the installed language pack with the given ID
func Get(dir string, id string) (*Pack, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, ErrLanguageNotFound
	}
	if _, err := language.Parse(id); err != nil {
		return nil, ErrLanguageNotFound
	}
	pack, err := loadPack(dir, id)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrLanguageNotFound
	}
	return pack, err
}

// Installed returns true if a language pack with the given ID exists in dir
func Installed(dir string, id string) bool {
	_, err := Get(dir, id)
	return err == nil
}

// Entry is a single string of a language file
type Entry struct {
	Key   string
	Value string
}

// Entries reads a language file and returns its entries sorted by key
func Entries(file string) ([]Entry, error) {
	values := map[string]string{}
	if _, err := toml.DecodeFile(file, &values); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(values))
	for k, v := range values {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}

// FilterEntries returns the entries whose key or value matches the glob pattern. A pattern without
// wildcards matches anywhere in the key or value
func FilterEntries(entries []Entry, pattern string) ([]Entry, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return entries, nil
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		pattern = "*" + pattern + "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, err
	}
	var filtered []Entry
	for _, entry := range entries {
		if g.Match(entry.Key) || g.Match(entry.Value) {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// SaveEntries writes the changed values to the language file. Keys that aren't already in the file
// are ignored. It returns the keys that were changed, in sorted order. The file is only rewritten if
// something changed
func SaveEntries(file string, changes map[string]string) ([]string, error) {
	values := map[string]string{}
	if _, err := toml.DecodeFile(file, &values); err != nil {
		return nil, err
	}
	var changed []string
	for k, v := range changes {
		old, ok := values[k]
		if !ok || old == v {
			continue
		}
		values[k] = v
		changed = append(changed, k)
	}
	if len(changed) == 0 {
		return nil, nil
	}
	sort.Strings(changed)

	tmp, err := os.CreateTemp(filepath.Dir(file), ".lang-*"+fileExt)
	if err != nil {
		return nil, err
	}
	tmpName := tmp.Name()
	if err = toml.NewEncoder(tmp).Encode(values); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	if info, err := os.Stat(file); err == nil {
		os.Chmod(tmpName, info.Mode().Perm())
	}
	if err = os.Rename(tmpName, file); err != nil {
		os.Remove(tmpName)
		return nil, err
	}
	return changed, nil
}
