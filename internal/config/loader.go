package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "scanprep"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SCANPREP"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance, which is where
// the CLI binds its flags.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// NewLoaderWith creates a loader on a caller-owned viper instance.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// Load reads the first config file found on the search paths, then applies
// environment variables and defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	return l.load("", true)
}

// LoadWithoutValidation is Load without the final Validate call.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	return l.load("", false)
}

// LoadWithFile loads configuration from a specific file path. An empty path
// falls back to Load.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	return l.load(configFile, true)
}

// LoadWithFileWithoutValidation is LoadWithFile without the final Validate call.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	return l.load(configFile, false)
}

func (l *Loader) load(configFile string, validate bool) (*Config, error) {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
	}

	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case configFile != "":
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		case !errors.As(err, &notFound):
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No file on the search paths; defaults and env vars apply.
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if validate {
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &config, nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) any {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// pipeline.target_width -> SCANPREP_PIPELINE_TARGET_WIDTH
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so env vars are picked up by Unmarshal.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	l.v.SetDefault("pipeline.steps", d.Pipeline.Steps)
	l.v.SetDefault("pipeline.target_width", d.Pipeline.TargetWidth)
	l.v.SetDefault("pipeline.accelerate", d.Pipeline.Accelerate)

	l.v.SetDefault("pipeline.contrast.use_gamma", d.Pipeline.Contrast.UseGamma)
	l.v.SetDefault("pipeline.contrast.gamma", d.Pipeline.Contrast.Gamma)
	l.v.SetDefault("pipeline.contrast.use_clahe", d.Pipeline.Contrast.UseCLAHE)
	l.v.SetDefault("pipeline.contrast.clip_limit", d.Pipeline.Contrast.ClipLimit)
	l.v.SetDefault("pipeline.contrast.tiles_x", d.Pipeline.Contrast.TilesX)
	l.v.SetDefault("pipeline.contrast.tiles_y", d.Pipeline.Contrast.TilesY)

	l.v.SetDefault("pipeline.denoise.strength", d.Pipeline.Denoise.Strength)
	l.v.SetDefault("pipeline.denoise.patch_size", d.Pipeline.Denoise.PatchSize)
	l.v.SetDefault("pipeline.denoise.search_size", d.Pipeline.Denoise.SearchSize)

	l.v.SetDefault("pipeline.sharpen.center_weight", d.Pipeline.Sharpen.CenterWeight)
	l.v.SetDefault("pipeline.sharpen.neighbor_weight", d.Pipeline.Sharpen.NeighborWeight)

	l.v.SetDefault("pipeline.edge.alpha", d.Pipeline.Edge.Alpha)
	l.v.SetDefault("pipeline.edge.kernel_size", d.Pipeline.Edge.KernelSize)

	l.v.SetDefault("pipeline.threshold.cutoff", d.Pipeline.Threshold.Cutoff)
	l.v.SetDefault("pipeline.threshold.max", d.Pipeline.Threshold.Max)
	l.v.SetDefault("pipeline.threshold.invert", d.Pipeline.Threshold.Invert)

	l.v.SetDefault("pipeline.deskew.blur_size", d.Pipeline.Deskew.BlurSize)
	l.v.SetDefault("pipeline.deskew.canny_low", d.Pipeline.Deskew.CannyLow)
	l.v.SetDefault("pipeline.deskew.canny_high", d.Pipeline.Deskew.CannyHigh)
	l.v.SetDefault("pipeline.deskew.hough_votes", d.Pipeline.Deskew.HoughVotes)
	l.v.SetDefault("pipeline.deskew.min_line_length", d.Pipeline.Deskew.MinLineLength)
	l.v.SetDefault("pipeline.deskew.max_line_gap", d.Pipeline.Deskew.MaxLineGap)

	l.v.SetDefault("pipeline.crop.min_confidence", d.Pipeline.Crop.MinConfidence)
	l.v.SetDefault("pipeline.crop.margin", d.Pipeline.Crop.Margin)

	l.v.SetDefault("pipeline.orientation.penalty_weight", d.Pipeline.Orientation.PenaltyWeight)

	l.v.SetDefault("oracle.backend", d.Oracle.Backend)
	l.v.SetDefault("oracle.binary", d.Oracle.Binary)
	l.v.SetDefault("oracle.language", d.Oracle.Language)
	l.v.SetDefault("oracle.psm", d.Oracle.PSM)
	l.v.SetDefault("oracle.recognize_psm", d.Oracle.RecognizePSM)
	l.v.SetDefault("oracle.timeout_sec", d.Oracle.TimeoutSec)

	l.v.SetDefault("output.dir", d.Output.Dir)
	l.v.SetDefault("output.suffix", d.Output.Suffix)
	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.file", d.Output.File)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)

	l.v.SetDefault("pdf.pages", d.PDF.Pages)

	l.v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	l.v.SetDefault("metrics.file", d.Metrics.File)
}

// GetResolvedConfig returns the current resolved settings for debugging.
func (l *Loader) GetResolvedConfig() map[string]any {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file. The format
// follows the file extension.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes a configuration file holding every default.
func GenerateDefaultConfigFile(filename string) error {
	loader := NewLoaderWith(viper.New())
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are
// searched, in order.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}
	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	return append(paths, "/etc/"+ConfigFileName)
}

// PrintConfigInfo writes where configuration was looked for and found.
func (l *Loader) PrintConfigInfo(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", l.GetConfigFileUsed())
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s\n", EnvPrefix)
}
