//nolint:lll
package config

// Config represents the complete configuration for scanprep.
// It covers every command (image, batch, pdf, check) and is loaded from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Step parameters and the default step list
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Recognition backend
	Oracle OracleConfig `mapstructure:"oracle" yaml:"oracle" json:"oracle"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// PDF input configuration
	PDF PDFConfig `mapstructure:"pdf" yaml:"pdf" json:"pdf"`

	// Metrics textfile export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// PipelineConfig contains the step list and per-step parameters.
type PipelineConfig struct {
	Steps       []string `mapstructure:"steps" yaml:"steps" json:"steps"`
	TargetWidth int      `mapstructure:"target_width" yaml:"target_width" json:"target_width"`
	Accelerate  bool     `mapstructure:"accelerate" yaml:"accelerate" json:"accelerate"`

	Contrast    ContrastConfig    `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
	Denoise     DenoiseConfig     `mapstructure:"denoise" yaml:"denoise" json:"denoise"`
	Sharpen     SharpenConfig     `mapstructure:"sharpen" yaml:"sharpen" json:"sharpen"`
	Edge        EdgeConfig        `mapstructure:"edge" yaml:"edge" json:"edge"`
	Threshold   ThresholdConfig   `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Deskew      DeskewConfig      `mapstructure:"deskew" yaml:"deskew" json:"deskew"`
	Crop        CropConfig        `mapstructure:"crop" yaml:"crop" json:"crop"`
	Orientation OrientationConfig `mapstructure:"orientation" yaml:"orientation" json:"orientation"`
}

// ContrastConfig contains gamma and CLAHE settings.
type ContrastConfig struct {
	UseGamma  bool    `mapstructure:"use_gamma" yaml:"use_gamma" json:"use_gamma"`
	Gamma     float64 `mapstructure:"gamma" yaml:"gamma" json:"gamma"`
	UseCLAHE  bool    `mapstructure:"use_clahe" yaml:"use_clahe" json:"use_clahe"`
	ClipLimit float64 `mapstructure:"clip_limit" yaml:"clip_limit" json:"clip_limit"`
	TilesX    int     `mapstructure:"tiles_x" yaml:"tiles_x" json:"tiles_x"`
	TilesY    int     `mapstructure:"tiles_y" yaml:"tiles_y" json:"tiles_y"`
}

// DenoiseConfig contains non-local means settings.
type DenoiseConfig struct {
	Strength   float64 `mapstructure:"strength" yaml:"strength" json:"strength"`
	PatchSize  int     `mapstructure:"patch_size" yaml:"patch_size" json:"patch_size"`
	SearchSize int     `mapstructure:"search_size" yaml:"search_size" json:"search_size"`
}

// SharpenConfig contains the sharpening kernel weights.
type SharpenConfig struct {
	CenterWeight   float64 `mapstructure:"center_weight" yaml:"center_weight" json:"center_weight"`
	NeighborWeight float64 `mapstructure:"neighbor_weight" yaml:"neighbor_weight" json:"neighbor_weight"`
}

// EdgeConfig contains edge enhancement settings.
type EdgeConfig struct {
	Alpha      float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
	KernelSize int     `mapstructure:"kernel_size" yaml:"kernel_size" json:"kernel_size"`
}

// ThresholdConfig contains binarisation settings.
type ThresholdConfig struct {
	Cutoff int  `mapstructure:"cutoff" yaml:"cutoff" json:"cutoff"`
	Max    int  `mapstructure:"max" yaml:"max" json:"max"`
	Invert bool `mapstructure:"invert" yaml:"invert" json:"invert"`
}

// DeskewConfig contains the Canny and Hough settings of the skew estimate.
type DeskewConfig struct {
	BlurSize      int     `mapstructure:"blur_size" yaml:"blur_size" json:"blur_size"`
	CannyLow      float64 `mapstructure:"canny_low" yaml:"canny_low" json:"canny_low"`
	CannyHigh     float64 `mapstructure:"canny_high" yaml:"canny_high" json:"canny_high"`
	HoughVotes    int     `mapstructure:"hough_votes" yaml:"hough_votes" json:"hough_votes"`
	MinLineLength int     `mapstructure:"min_line_length" yaml:"min_line_length" json:"min_line_length"`
	MaxLineGap    int     `mapstructure:"max_line_gap" yaml:"max_line_gap" json:"max_line_gap"`
}

// CropConfig contains crop-to-text settings.
type CropConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	Margin        int     `mapstructure:"margin" yaml:"margin" json:"margin"`
}

// OrientationConfig contains the orientation scoring settings.
type OrientationConfig struct {
	PenaltyWeight float64 `mapstructure:"penalty_weight" yaml:"penalty_weight" json:"penalty_weight"`
}

// OracleConfig selects and tunes the recognition backend.
type OracleConfig struct {
	Backend      string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Binary       string `mapstructure:"binary" yaml:"binary" json:"binary"`
	Language     string `mapstructure:"language" yaml:"language" json:"language"`
	PSM          int    `mapstructure:"psm" yaml:"psm" json:"psm"`
	RecognizePSM int    `mapstructure:"recognize_psm" yaml:"recognize_psm" json:"recognize_psm"`
	TimeoutSec   int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// OutputConfig contains output image and summary settings.
type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Suffix string `mapstructure:"suffix" yaml:"suffix" json:"suffix"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// PDFConfig contains PDF page selection.
type PDFConfig struct {
	Pages string `mapstructure:"pages" yaml:"pages" json:"pages"`
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	File    string `mapstructure:"file" yaml:"file" json:"file"`
}
