package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type LoadOptions struct {
	// File is an optional JSON, YAML or TOML config file.
	File string
	// DotEnv is a dotenv file whose values apply beneath the process environment. A missing file is skipped.
	DotEnv string
	// Environ is the process environment in `KEY=value` form. Defaults to os.Environ().
	Environ []string
}

// Load builds a Config from, in increasing precedence: defaults, the config file, the dotenv file,
// and the process environment. The result is not validated; call Config.Validate.
func Load(opts LoadOptions) (Config, error) {
	log := zap.L().Named("config").Sugar()
	cfg := Defaults()

	if opts.File != "" {
		if err := ReadConfig(opts.File, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "could not read config file %s", opts.File)
		}
		log.Debugf("Loaded %s config from %s", cfg.Format, opts.File)
	}

	env := make(map[string]string)
	if opts.DotEnv != "" {
		dotenv, err := godotenv.Read(opts.DotEnv)
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debugf("No dotenv file at %s", opts.DotEnv)
		case err != nil:
			return cfg, errors.Wrapf(err, "could not read dotenv file %s", opts.DotEnv)
		default:
			for k, v := range dotenv {
				env[k] = v
			}
			log.Debugf("Loaded %d values from %s", len(dotenv), opts.DotEnv)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	if err := DecodeEnv(env, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadConfig decodes the file at `fpath` over `cfg`, selecting the format by extension.
func ReadConfig(fpath string, cfg *Config) error {
	f, err := os.Open(fpath)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck

	switch ext := filepath.Ext(fpath); ext {
	case ".json":
		err = json.NewDecoder(f).Decode(cfg)
		cfg.Format = "json"

	case ".yaml", ".yml":
		err = yaml.NewDecoder(f).Decode(cfg)
		cfg.Format = "yaml"

	case ".toml":
		err = toml.NewDecoder(f).Decode(cfg)
		cfg.Format = "toml"

	default:
		err = errors.Errorf("unsupported config file extension %q", ext)
	}
	return err
}

// DecodeEnv applies the recognised keys of `env` onto `cfg`. Empty values are treated as unset and
// list values are comma separated.
func DecodeEnv(env map[string]string, cfg *Config) error {
	input := make(map[string]any, len(env))
	for k, v := range env {
		if strings.TrimSpace(v) == "" {
			continue
		}
		input[k] = strings.TrimSpace(v)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook:       trimmedSliceHook(","),
	})
	if err != nil {
		return err
	}
	return errors.Wrap(dec.Decode(input), "could not decode environment")
}

// trimmedSliceHook splits a string on `sep` when decoding into a slice. Elements are trimmed and
// empty ones dropped, so `a, b,` decodes to [a b].
func trimmedSliceHook(sep string) mapstructure.DecodeHookFuncKind {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.Slice {
			return data, nil
		}
		var res []string
		for _, item := range strings.Split(data.(string), sep) {
			if item = strings.TrimSpace(item); item != "" {
				res = append(res, item)
			}
		}
		return res, nil
	}
}
