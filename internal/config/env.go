package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/fsrecon/internal/freesurfer"
	"github.com/joho/godotenv"
)

// Environment variable names read by FreeSurfer.
const (
	EnvFreeSurferHome = "FREESURFER_HOME"
	EnvLicense        = "FS_LICENSE"
)

// ErrNoFreeSurferHome is returned when FREESURFER_HOME cannot be resolved.
var ErrNoFreeSurferHome = errors.New(EnvFreeSurferHome + " is not set; export it, add it to --env-file or pass --freesurfer-home")

// Environment builds the environment of the pipeline processes: base
// (normally os.Environ()), then the dotenv file, then FREESURFER_HOME and
// FS_LICENSE from the command line.
func (c *Config) Environment(base []string) ([]string, error) {
	env := append([]string(nil), base...)

	if c.EnvFile != "" {
		vars, err := godotenv.Read(c.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", c.EnvFile, err)
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env = SetEnv(env, k, vars[k])
		}
	}

	if c.FreeSurferHome != "" {
		env = SetEnv(env, EnvFreeSurferHome, c.FreeSurferHome)
	}
	if c.LicensePath != "" {
		env = SetEnv(env, EnvLicense, c.LicensePath)
	}
	return env, nil
}

// FSAverage resolves the recon-all -target template from env.
func FSAverage(env []string) (string, error) {
	home := LookupEnv(env, EnvFreeSurferHome)
	if home == "" {
		return "", ErrNoFreeSurferHome
	}
	return freesurfer.FSAverage(home), nil
}

// SetEnv replaces or appends key in env.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// LookupEnv returns the last value of key in env, or "".
func LookupEnv(env []string, key string) string {
	prefix := key + "="
	value := ""
	for _, kv := range env {
		if v, ok := strings.CutPrefix(kv, prefix); ok {
			value = v
		}
	}
	return value
}
