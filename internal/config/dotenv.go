package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDotEnvPath is the .env file read at startup.
const DefaultDotEnvPath = ".env"

// LoadDotEnv reads KEY=value pairs from a .env file into the process
// environment. Variables that are already set are left alone so the
// real environment always wins. A missing file is not an error.
// Returns the number of variables set.
func LoadDotEnv(path string) (int, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}

	set := 0
	for _, key := range v.AllKeys() {
		// viper folds keys to lower case; env names are conventionally upper.
		name := strings.ToUpper(key)
		if _, ok := os.LookupEnv(name); ok {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return set, fmt.Errorf("set %s: %w", name, err)
		}
		set++
	}
	return set, nil
}
