package transform

// ContrastParams configures gamma correction followed by CLAHE.
type ContrastParams struct {
	UseGamma  bool
	Gamma     float64
	UseCLAHE  bool
	ClipLimit float64
	TilesX    int
	TilesY    int
}

// DefaultContrastParams returns gamma 0.5 and an 8×8 CLAHE grid with clip limit 4.
func DefaultContrastParams() ContrastParams {
	return ContrastParams{
		UseGamma:  true,
		Gamma:     0.5,
		UseCLAHE:  true,
		ClipLimit: 4.0,
		TilesX:    8,
		TilesY:    8,
	}
}

// DenoiseParams configures non-local means denoising.
type DenoiseParams struct {
	Strength   float64 // filter strength h
	PatchSize  int     // template window, odd
	SearchSize int     // search window, odd
	Accelerate bool    // use OpenCV when linked in
}

// DefaultDenoiseParams returns h=5 with a 9px patch and a 31px search window.
func DefaultDenoiseParams() DenoiseParams {
	return DenoiseParams{Strength: 5, PatchSize: 9, SearchSize: 31}
}

// SharpenParams holds the symmetric 3×3 sharpening kernel: a center weight
// and the weight shared by the four direct neighbours. Diagonals are zero.
type SharpenParams struct {
	CenterWeight   float64
	NeighborWeight float64
}

// DefaultSharpenParams returns the kernel [0,-0.5,0; -0.5,3,-0.5; 0,-0.5,0].
func DefaultSharpenParams() SharpenParams {
	return SharpenParams{CenterWeight: 3, NeighborWeight: -0.5}
}

// Kernel returns the row-major 3×3 kernel.
func (p SharpenParams) Kernel() [9]float64 {
	n := p.NeighborWeight
	return [9]float64{
		0, n, 0,
		n, p.CenterWeight, n,
		0, n, 0,
	}
}

// EdgeParams configures morphological-gradient edge enhancement.
type EdgeParams struct {
	Alpha      float64
	KernelSize int
}

// DefaultEdgeParams returns alpha 0.2 over a 3×3 rectangle.
func DefaultEdgeParams() EdgeParams {
	return EdgeParams{Alpha: 0.2, KernelSize: 3}
}

// ThresholdParams configures global binarisation.
type ThresholdParams struct {
	Cutoff uint8
	Max    uint8
	Invert bool
}

// DefaultThresholdParams returns cutoff 80 and max 255.
func DefaultThresholdParams() ThresholdParams {
	return ThresholdParams{Cutoff: 80, Max: 255}
}

// DeskewParams configures the Canny/Hough skew estimate.
type DeskewParams struct {
	BlurSize      int // Gaussian kernel size, odd
	CannyLow      float64
	CannyHigh     float64
	HoughVotes    int
	MinLineLength int
	MaxLineGap    int
	Seed          uint64 // seeds the probabilistic Hough point order
	Accelerate    bool   // use OpenCV when linked in
}

// DefaultDeskewParams mirrors the usual Hough deskew recipe: 5×5 blur,
// Canny 50/150, 100 votes, lines of at least 100px with gaps up to 10px.
func DefaultDeskewParams() DeskewParams {
	return DeskewParams{
		BlurSize:      5,
		CannyLow:      50,
		CannyHigh:     150,
		HoughVotes:    100,
		MinLineLength: 100,
		MaxLineGap:    10,
		Seed:          ^uint64(0),
	}
}

// CropParams configures crop-to-text.
type CropParams struct {
	MinConfidence float64
	Margin        int
}

// DefaultCropParams keeps words above confidence 60 with a 100px margin.
func DefaultCropParams() CropParams {
	return CropParams{MinConfidence: 60, Margin: 100}
}
