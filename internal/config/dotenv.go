package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the given env files that exist into the process
// environment. A later file overrides an earlier one, so .env.local can be
// listed after .env; variables already set in the process are never
// overridden. It returns the number of files loaded.
func LoadDotEnv(files ...string) (int, error) {
	merged := map[string]string{}
	loaded := 0
	for _, f := range files {
		if st, err := os.Stat(f); err != nil || st.IsDir() {
			continue
		}
		vars, err := godotenv.Read(f)
		if err != nil {
			return loaded, fmt.Errorf("%s: %w", f, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
		loaded++
	}

	for k, v := range merged {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return loaded, err
		}
	}
	return loaded, nil
}
