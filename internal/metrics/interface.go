// Quality metrics for judging which source a composite resembles
package metrics

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric value
	Calculate(original, processed gocv.Mat) (float64, error)

	// GetName returns the metric name
	GetName() string

	// GetDescription returns the metric description
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate closer images
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric

	// FarSigma is the Gaussian blur used to mimic viewing from a distance.
	FarSigma float64
}

// NewEvaluator creates an evaluator with PSNR, MSE and SSIM registered
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics:  make(map[string]Metric),
		FarSigma: 4,
	}

	e.Register("psnr", NewPSNR())
	e.Register("mse", NewMSE())
	e.Register("ssim", NewSSIM())

	return e
}

// Register registers a metric
func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed gocv.Mat) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(original, processed)
}

// CalculateAll calculates all registered metrics, skipping those that fail
func (e *Evaluator) CalculateAll(original, processed gocv.Mat) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}

	return results
}

// SourceReport compares a composite with both aligned sources.
type SourceReport struct {
	Sigma float64

	// Near holds metrics of the composite against each source as is.
	NearFirst  map[string]float64
	NearSecond map[string]float64

	// Far holds metrics after blurring both sides, which is roughly what a
	// distant viewer sees. A good hybrid image scores high on FarFirst.
	FarFirst  map[string]float64
	FarSecond map[string]float64
}

// CompareSources evaluates composite against first and second, which must be
// the 8-bit aligned canvases the composite was built from.
func (e *Evaluator) CompareSources(sigma float64, composite, first, second gocv.Mat) (SourceReport, error) {
	for _, m := range []gocv.Mat{first, second} {
		if err := checkPair(composite, m); err != nil {
			return SourceReport{}, err
		}
	}

	report := SourceReport{
		Sigma:      sigma,
		NearFirst:  e.CalculateAll(first, composite),
		NearSecond: e.CalculateAll(second, composite),
	}

	blurred := e.blur(composite)
	defer blurred.Close()
	farFirst := e.blur(first)
	defer farFirst.Close()
	farSecond := e.blur(second)
	defer farSecond.Close()

	report.FarFirst = e.CalculateAll(farFirst, blurred)
	report.FarSecond = e.CalculateAll(farSecond, blurred)

	return report, nil
}

func (e *Evaluator) blur(src gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	if e.FarSigma <= 0 {
		src.CopyTo(&dst)
		return dst
	}
	gocv.GaussianBlur(src, &dst, image.Pt(0, 0), e.FarSigma, e.FarSigma, gocv.BorderReplicate)
	return dst
}

func checkPair(original, processed gocv.Mat) error {
	if original.Empty() || processed.Empty() {
		return fmt.Errorf("empty images")
	}
	if original.Rows() != processed.Rows() || original.Cols() != processed.Cols() {
		return fmt.Errorf("image dimensions mismatch: %dx%d vs %dx%d",
			original.Cols(), original.Rows(), processed.Cols(), processed.Rows())
	}
	return nil
}
