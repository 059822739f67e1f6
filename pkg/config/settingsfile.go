package config

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeebo/blake3"
)

var (
	fileSettings       map[string]string
	fileSettingsDigest string
	fileSettingsMutex  sync.RWMutex

	// FileSettingKeys lists the settings that are stored in the settings file instead of the database
	FileSettingKeys = []string{"language", "db_show_debug", "maintenance", "mtitle", "mmessage", "cookiename"}
)

func resetFileSettings() {
	fileSettingsMutex.Lock()
	defer fileSettingsMutex.Unlock()
	fileSettings = map[string]string{}
	fileSettingsDigest = ""
}

func digest(ba []byte) string {
	hasher := blake3.New()
	hasher.Write(ba)
	return string(hasher.Sum(nil))
}

// LoadFileSettings reads the settings file into memory. A missing file is treated as empty.
// It returns true if the contents changed since the last load
func LoadFileSettings() (changed bool, err error) {
	setDefaultCfgIfNotSet()
	ba, err := os.ReadFile(cfg.SettingsFile)
	if errors.Is(err, os.ErrNotExist) {
		ba = []byte("{}")
	} else if err != nil {
		return false, err
	}

	newDigest := digest(ba)
	fileSettingsMutex.RLock()
	unchanged := fileSettings != nil && newDigest == fileSettingsDigest
	fileSettingsMutex.RUnlock()
	if unchanged {
		return false, nil
	}

	values := map[string]string{}
	if err = json.Unmarshal(ba, &values); err != nil {
		return false, err
	}
	fileSettingsMutex.Lock()
	fileSettings = values
	fileSettingsDigest = newDigest
	fileSettingsMutex.Unlock()
	return true, nil
}

// GetFileSetting returns the value of a file-backed setting, or an empty string if it isn't set
func GetFileSetting(key string) string {
	fileSettingsMutex.RLock()
	defer fileSettingsMutex.RUnlock()
	return fileSettings[key]
}

// GetFileSettingBool returns true if the file-backed setting is set to "1" or "true"
func GetFileSettingBool(key string) bool {
	val := GetFileSetting(key)
	return val == "1" || val == "true"
}

// FileSettings returns a copy of all file-backed settings
func FileSettings() map[string]string {
	fileSettingsMutex.RLock()
	defer fileSettingsMutex.RUnlock()
	values := make(map[string]string, len(fileSettings))
	for k, v := range fileSettings {
		values[k] = v
	}
	return values
}

// SaveFileSettings merges values into the file-backed settings and writes the settings file. The previous
// file is kept as <file>.bak and the new one is written to a temporary file and renamed into place
func SaveFileSettings(values map[string]string) error {
	setDefaultCfgIfNotSet()
	fileSettingsMutex.Lock()
	defer fileSettingsMutex.Unlock()

	merged := make(map[string]string, len(fileSettings)+len(values))
	for k, v := range fileSettings {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}

	if cfg.SettingsFile == "" {
		fileSettings = merged
		return nil
	}

	ba, err := json.MarshalIndent(merged, "", "\t")
	if err != nil {
		return err
	}

	if err = backupFile(cfg.SettingsFile); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(cfg.SettingsFile), ".settings-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(ba); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Chmod(tmpName, NormalFileMode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err = os.Rename(tmpName, cfg.SettingsFile); err != nil {
		os.Remove(tmpName)
		return err
	}
	fileSettings = merged
	fileSettingsDigest = digest(ba)
	return nil
}

func backupFile(fp string) error {
	in, err := os.Open(fp)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(fp+".bak", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, NormalFileMode)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
