/*
Package settings controls reading configuration from a yaml file and the environment and assigning defaults
*/
package settings

import (
	"fmt"
	"log" // cannot use zerolog as log options not initialised
	"os"
	"reflect"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read into Settings.
// Both 'DD.INDEX.STRENGTH' and 'DD__INDEX__STRENGTH' styles are accepted.
const EnvPrefix = "DD"

var Settings *DDSettings
var Index *DDIndex
var Window *DDWindow
var Workers *DDWorkers

// HumanReadableBytes is a byte count that may be configured as "512MiB", "2GB" etc.
type HumanReadableBytes uint64

func (b HumanReadableBytes) String() string {
	return humanize.IBytes(uint64(b))
}

type DDIndex struct {
	// fingerprint strength for duplicate reporting, 'strong' or 'fast'
	// splitting records always uses the strong fingerprint
	Strength string `koanf:"strength"`
	// log a warning once the estimated index memory passes this size
	WarnBytes HumanReadableBytes `koanf:"warn_bytes"`
	// expected number of distinct records, used to presize the index
	SizeHint int `koanf:"size_hint"`
}

type DDWindow struct {
	// width of a reporting window
	Granularity time.Duration `koanf:"granularity"`
	// duplicates / unique ratio at which a window is reported
	Threshold float64 `koanf:"threshold"`
}

type DDWorkers struct {
	// goroutines computing fingerprints, zero uses GOMAXPROCS
	Count int `koanf:"count"`
	// records read and fingerprinted together before being applied to the index
	BatchSize int `koanf:"batch_size"`
}

type DDSettings struct {
	// debug, info, warn, error
	LogLevel string `koanf:"log_level"`
	// folder for the rotating duplicate record log, empty disables it
	LogPath string `koanf:"log_path"`
	// serve prometheus metrics on this address while running, empty disables it
	MetricsAddr string    `koanf:"metrics_addr"`
	Index       DDIndex   `koanf:"index"`
	Window      DDWindow  `koanf:"window"`
	Workers     DDWorkers `koanf:"workers"`
}

var defaults DDSettings = DDSettings{
	LogLevel:    "info",
	LogPath:     "",
	MetricsAddr: "",
	Index: DDIndex{
		Strength:  "fast",
		WarnBytes: 4 * 1024 * 1024 * 1024,
		SizeHint:  1 << 16,
	},
	Window: DDWindow{
		Granularity: time.Minute,
		Threshold:   1.0,
	},
	Workers: DDWorkers{
		Count:     0,
		BatchSize: 1024,
	},
}

// HumanReadableBytesHookFunc converts strings such as "10Ki" or "2 GB" into HumanReadableBytes.
func HumanReadableBytesHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(HumanReadableBytes(0)) || f.Kind() != reflect.String {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return HumanReadableBytes(0), nil
		}
		val, err := humanize.ParseBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid byte size %q: %w", raw, err)
		}
		return HumanReadableBytes(val), nil
	}
}

// envKey maps 'DD.INDEX.STRENGTH' and 'DD__INDEX__STRENGTH' to 'index.strength'.
// Other variables starting with the prefix are skipped.
func envKey(key string) string {
	rest := strings.TrimPrefix(key, EnvPrefix)
	switch {
	case strings.HasPrefix(rest, "__"):
		rest = strings.ReplaceAll(strings.TrimPrefix(rest, "__"), "__", ".")
	case strings.HasPrefix(rest, "."):
		rest = strings.TrimPrefix(rest, ".")
	default:
		return ""
	}
	return strings.ToLower(rest)
}

// Parse builds settings from defaults, then optional yaml content, then environment variables.
// Values left at their zero value fall back to defaults.
func Parse(yamlContent []byte) (*DDSettings, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, err
	}
	if len(yamlContent) > 0 {
		fromFile := map[string]any{}
		if err := yaml.Unmarshal(yamlContent, &fromFile); err != nil {
			return nil, fmt.Errorf("config file is not valid yaml: %w", err)
		}
		if err := k.Load(confmap.Provider(fromFile, ""), nil); err != nil {
			return nil, fmt.Errorf("config file could not be loaded: %w", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("environment could not be loaded: %w", err)
	}

	parsed := DDSettings{}
	err := k.UnmarshalWithConf("", &parsed, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &parsed,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				HumanReadableBytesHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("config file or environment has invalid settings: %w", err)
	}
	// empty values such as 'DD.WORKERS.BATCH_SIZE=' still get a usable default
	if err := mergo.Merge(&parsed, defaults); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func apply(s *DDSettings) {
	Settings = s
	Index = &Settings.Index
	Window = &Settings.Window
	Workers = &Settings.Workers
	SetLogLevel(Settings.LogLevel)
}

// Load reads configPath (if not empty) plus the environment into the global settings.
func Load(configPath string) error {
	var content []byte
	if configPath != "" {
		var err error
		content, err = os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("could not read config file: %w", err)
		}
	}
	s, err := Parse(content)
	if err != nil {
		return err
	}
	apply(s)
	return nil
}

// ResetSettings reloads global settings from the environment only.
func ResetSettings() {
	s, err := Parse(nil)
	if err != nil {
		log.Fatalf("invalid settings in environment: %v", err)
	}
	apply(s)
}

func init() {
	ResetSettings()
}
