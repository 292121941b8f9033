package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// BaseName is the file name, without extension, of a project config file.
const BaseName = "dyncast"

// DefaultConfigDir returns the platform-specific user configuration
// directory for dyncast.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "dyncast"), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "dyncast"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "dyncast"), nil
		}
		return "", errors.New("HOME not set")
	}
}

// CandidatePaths builds candidate config file paths per format, most
// specific first. A userPath is routed to the loader matching its
// extension and tried before the project directory and the user
// configuration directory.
func CandidatePaths(userPath, cwd string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch Format(userPath) {
		case "yaml":
			add(&yamlPaths, userPath)
		case "toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	dirs := []string{cwd}
	if dir, err := DefaultConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		add(&jsonPaths, filepath.Join(dir, BaseName+".json"))
		add(&yamlPaths, filepath.Join(dir, BaseName+".yaml"))
		add(&yamlPaths, filepath.Join(dir, BaseName+".yml"))
		add(&tomlPaths, filepath.Join(dir, BaseName+".toml"))
	}
	return
}

// Format returns the config format for a file name: "json", "yaml" or
// "toml". Unknown extensions are read as JSON.
func Format(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	}
	return "json"
}

// EnsureDir ensures the directory for a given file path exists.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}
