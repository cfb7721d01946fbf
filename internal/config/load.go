package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of environment variables overriding flags,
	// e.g. IPERF3_WRAPPER_RESULT_DST_PATH.
	EnvPrefix = "IPERF3_WRAPPER"

	// DefaultSection is the section of the configuration file holding
	// default option values.
	DefaultSection = "default"
)

// DefaultFile returns the path of the per-user configuration file.
func DefaultFile() string {
	return ExpandHome(filepath.Join("~", ".config", "another-iperf3-wrapper", "another-iperf3-wrapper.json"))
}

// ReadFile reads the default section of the configuration file at path. A
// missing file is not an error and yields a nil Viper.
func ReadFile(path string) (*viper.Viper, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debug("no configuration file", "path", path)
		return nil, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return v.Sub(DefaultSection), nil
}

// Apply fills every flag of fs that was not set on the command line from,
// in order of precedence, the environment and the file defaults. Flag
// "result-dst-path" maps to key "result_dst_path".
func Apply(fs *pflag.FlagSet, file *viper.Viper) error {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		var value string
		switch {
		case env.IsSet(key):
			value = env.GetString(key)
		case file != nil && file.IsSet(key):
			value = file.GetString(key)
		default:
			return
		}
		if err := fs.Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("option %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}
