package languages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func setupLanguageDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"en/index.toml": "greeting = \"Hello\"\nfarewell = \"Goodbye\"\n",
		"en/admin.toml": "admin_title = \"Administration Center\"\nadmin_logs = \"Logs\"\n",
		"en/notes.txt":  "not a language file",
		"de/index.toml": "greeting = \"Hallo\"\n",
	}
	for name, contents := range files {
		fp := filepath.Join(dir, name)
		if !assert.NoError(t, os.MkdirAll(filepath.Dir(fp), 0755)) {
			t.FailNow()
		}
		if !assert.NoError(t, os.WriteFile(fp, []byte(contents), 0644)) {
			t.FailNow()
		}
	}
	if !assert.NoError(t, os.MkdirAll(filepath.Join(dir, "not a tag"), 0755)) {
		t.FailNow()
	}
	return dir
}

func TestList(t *testing.T) {
	dir := setupLanguageDir(t)
	packs, err := List(dir)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	if !assert.Len(t, packs, 2) {
		t.FailNow()
	}
	assert.Equal(t, "de", packs[0].ID)
	assert.Equal(t, "en", packs[1].ID)
	assert.Equal(t, []string{"admin", "index"}, packs[1].Files)
	assert.Equal(t, "German", packs[0].Name())
	assert.Equal(t, "Deutsch", packs[0].NativeName())
	assert.Equal(t, "English", packs[1].Name())
}

func TestGet(t *testing.T) {
	dir := setupLanguageDir(t)
	pack, err := Get(dir, "en")
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.True(t, pack.HasFile("admin"))
	assert.False(t, pack.HasFile("notes"))

	fp, err := pack.FilePath("index")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "en", "index.toml"), fp)

	_, err = pack.FilePath("missing")
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = pack.FilePath("../de/index")
	assert.ErrorIs(t, err, ErrInvalidFileName)

	for _, id := range []string{"fr", "", "../en", "not a tag"} {
		_, err = Get(dir, id)
		assert.ErrorIs(t, err, ErrLanguageNotFound, "id %q", id)
	}
	assert.True(t, Installed(dir, "de"))
	assert.False(t, Installed(dir, "fr"))
}

func TestEntries(t *testing.T) {
	dir := setupLanguageDir(t)
	entries, err := Entries(filepath.Join(dir, "en", "index.toml"))
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, []Entry{
		{Key: "farewell", Value: "Goodbye"},
		{Key: "greeting", Value: "Hello"},
	}, entries)
}

func TestFilterEntries(t *testing.T) {
	entries := []Entry{
		{Key: "admin_logs", Value: "Logs"},
		{Key: "admin_title", Value: "Administration Center"},
		{Key: "greeting", Value: "Hello"},
	}
	testCases := []struct {
		pattern  string
		expected []string
	}{
		{pattern: "", expected: []string{"admin_logs", "admin_title", "greeting"}},
		{pattern: "admin", expected: []string{"admin_logs", "admin_title"}},
		{pattern: "*Center", expected: []string{"admin_title"}},
		{pattern: "H?llo", expected: []string{"greeting"}},
		{pattern: "nothing", expected: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.pattern, func(t *testing.T) {
			filtered, err := FilterEntries(entries, tc.pattern)
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			var keys []string
			for _, entry := range filtered {
				keys = append(keys, entry.Key)
			}
			assert.Equal(t, tc.expected, keys)
		})
	}
	_, err := FilterEntries(entries, "[a")
	assert.Error(t, err)
}

func TestSaveEntries(t *testing.T) {
	dir := setupLanguageDir(t)
	fp := filepath.Join(dir, "en", "index.toml")
	changed, err := SaveEntries(fp, map[string]string{
		"greeting":  "Hi there",
		"farewell":  "Goodbye",
		"new_entry": "ignored",
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, []string{"greeting"}, changed)

	entries, err := Entries(fp)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, []Entry{
		{Key: "farewell", Value: "Goodbye"},
		{Key: "greeting", Value: "Hi there"},
	}, entries)

	info, err := os.Stat(fp)
	assert.NoError(t, err)
	before := info.ModTime()
	changed, err = SaveEntries(fp, map[string]string{"greeting": "Hi there"})
	assert.NoError(t, err)
	assert.Empty(t, changed)
	info, err = os.Stat(fp)
	assert.NoError(t, err)
	assert.Equal(t, before, info.ModTime())

	tmpFiles, err := filepath.Glob(filepath.Join(dir, "en", ".lang-*"))
	assert.NoError(t, err)
	assert.Empty(t, tmpFiles)
}
