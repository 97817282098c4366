// Concrete implementations of quality metrics
package metrics

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed gocv.Mat) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	mse := meanSquaredError(original, processed)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}

	maxVal := 255.0
	return 20 * math.Log10(maxVal/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio - measures pixel-level closeness"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100 // Practical range, can go higher
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// MSE implements Mean Squared Error metric
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed gocv.Mat) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}
	return meanSquaredError(original, processed), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error of the grayscale images"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, 65025
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// SSIM implements Structural Similarity Index metric
type SSIM struct{}

// NewSSIM creates a new SSIM metric
func NewSSIM() *SSIM {
	return &SSIM{}
}

func (s *SSIM) Calculate(original, processed gocv.Mat) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	f1 := grayFloat(original)
	defer f1.Close()
	f2 := grayFloat(processed)
	defer f2.Close()

	return calculateSSIM(f1, f2), nil
}

func (s *SSIM) GetName() string {
	return "SSIM"
}

func (s *SSIM) GetDescription() string {
	return "Structural Similarity Index - measures perceptual closeness"
}

func (s *SSIM) GetRange() (float64, float64) {
	return 0, 1
}

func (s *SSIM) IsHigherBetter() bool {
	return true
}

// calculateSSIM computes mean SSIM over an 11x11 Gaussian window.
func calculateSSIM(f1, f2 gocv.Mat) float64 {
	const (
		C1 = 6.5025  // (0.01 * 255)^2
		C2 = 58.5225 // (0.03 * 255)^2
	)

	window := func(src gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.GaussianBlur(src, &dst, image.Pt(11, 11), 1.5, 1.5, gocv.BorderDefault)
		return dst
	}
	product := func(a, b gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.Multiply(a, b, &dst)
		return dst
	}

	mu1 := window(f1)
	defer mu1.Close()
	mu2 := window(f2)
	defer mu2.Close()

	mu1Sq := product(mu1, mu1)
	defer mu1Sq.Close()
	mu2Sq := product(mu2, mu2)
	defer mu2Sq.Close()
	mu1Mu2 := product(mu1, mu2)
	defer mu1Mu2.Close()

	// variances and covariance: E[xy] - E[x]E[y]
	moment := func(a, b, mean gocv.Mat) gocv.Mat {
		ab := product(a, b)
		defer ab.Close()
		m := window(ab)
		gocv.Subtract(m, mean, &m)
		return m
	}
	sigma1Sq := moment(f1, f1, mu1Sq)
	defer sigma1Sq.Close()
	sigma2Sq := moment(f2, f2, mu2Sq)
	defer sigma2Sq.Close()
	sigma12 := moment(f1, f2, mu1Mu2)
	defer sigma12.Close()

	// (2*mu1*mu2 + C1) * (2*sigma12 + C2)
	n1 := mu1Mu2.Clone()
	defer n1.Close()
	n1.MultiplyFloat(2)
	n1.AddFloat(C1)
	n2 := sigma12.Clone()
	defer n2.Close()
	n2.MultiplyFloat(2)
	n2.AddFloat(C2)
	numerator := product(n1, n2)
	defer numerator.Close()

	// (mu1^2 + mu2^2 + C1) * (sigma1^2 + sigma2^2 + C2)
	d1 := gocv.NewMat()
	defer d1.Close()
	gocv.Add(mu1Sq, mu2Sq, &d1)
	d1.AddFloat(C1)
	d2 := gocv.NewMat()
	defer d2.Close()
	gocv.Add(sigma1Sq, sigma2Sq, &d2)
	d2.AddFloat(C2)
	denominator := product(d1, d2)
	defer denominator.Close()

	ssimMap := gocv.NewMat()
	defer ssimMap.Close()
	gocv.Divide(numerator, denominator, &ssimMap)

	return ssimMap.Mean().Val1
}

func meanSquaredError(original, processed gocv.Mat) float64 {
	f1 := grayFloat(original)
	defer f1.Close()
	f2 := grayFloat(processed)
	defer f2.Close()

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(f1, f2, &diff)

	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(diff, diff, &sq)

	return sq.Mean().Val1
}

// grayFloat converts an 8-bit image to single-channel CV_32F.
func grayFloat(input gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	if input.Channels() == 1 {
		input.CopyTo(&gray)
	} else {
		gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
	}

	f := gocv.NewMat()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)
	return f
}
