package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// DotEnv reads the given .env files and returns KEY=VALUE entries for the
// keys not already set in parent. Missing files are skipped. Earlier files
// win over later ones, as with godotenv.Load.
func DotEnv(parent []string, files ...string) ([]string, error) {
	set := make(map[string]bool, len(parent))
	for _, kv := range parent {
		if k, _, ok := strings.Cut(kv, "="); ok {
			set[k] = true
		}
	}

	values := map[string]string{}
	for _, file := range files {
		vars, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		for k, v := range vars {
			if set[k] {
				continue
			}
			if _, ok := values[k]; !ok {
				values[k] = v
			}
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, len(keys))
	for i, k := range keys {
		env[i] = k + "=" + values[k]
	}
	return env, nil
}
