// Preview window for browsing composites across blend strengths
package gui

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"gocv.io/x/gocv"
)

const (
	minSigma  = 0.5
	maxSigma  = 50.0
	sigmaStep = 0.5
)

// Compositor produces the hybrid image for a blend strength. The returned
// Mat stays owned by the Compositor.
type Compositor interface {
	Composite(sigma float64) (gocv.Mat, error)
}

// Preview shows one composite and a slider that requests another.
type Preview struct {
	window fyne.Window
	source Compositor
	logger *slog.Logger

	image      *canvas.Image
	slider     *widget.Slider
	sigmaLabel *widget.Label
	status     *widget.Label

	bottom *fyne.Container
	onSave func(sigma float64, composite gocv.Mat) error

	mu       sync.Mutex
	sigma    float64
	requests uint64

	// pending counts renders still reading a composite owned by source.
	pending sync.WaitGroup
}

func NewPreview(app fyne.App, source Compositor, sigma float64, logger *slog.Logger) *Preview {
	window := app.NewWindow("Hybrid Image")
	window.Resize(fyne.NewSize(640, 560))
	window.CenterOnScreen()

	p := &Preview{
		window: window,
		source: source,
		logger: logger,
		sigma:  sigma,
	}
	p.initializeGUI()
	p.setupLayout()

	return p
}

func (p *Preview) initializeGUI() {
	placeholder := image.NewRGBA(image.Rect(0, 0, 1, 1))
	placeholder.Set(0, 0, color.RGBA{245, 245, 245, 255})
	p.image = canvas.NewImageFromImage(placeholder)
	p.image.FillMode = canvas.ImageFillContain
	p.image.ScaleMode = canvas.ImageScalePixels
	p.image.SetMinSize(fyne.NewSize(200, 150))

	p.sigmaLabel = widget.NewLabel(sigmaText(p.sigma))
	p.status = widget.NewLabel("")

	p.slider = widget.NewSlider(minSigma, math.Max(maxSigma, p.sigma))
	p.slider.Step = sigmaStep
	p.slider.SetValue(p.sigma)
	p.slider.OnChanged = func(value float64) {
		p.sigmaLabel.SetText(sigmaText(value))
	}
	// render on release only
	p.slider.OnChangeEnded = p.requestRender
}

func (p *Preview) setupLayout() {
	controls := container.NewBorder(nil, nil, widget.NewLabel("Sigma:"), p.sigmaLabel, p.slider)

	p.bottom = container.NewVBox(controls, p.status)

	p.window.SetContent(container.NewBorder(
		nil,      // top
		p.bottom, // bottom
		nil,      // left
		nil,      // right
		container.NewPadded(p.image),
	))
}

// SetSaveHandler adds a Save button that passes the sigma and composite
// currently shown to fn.
func (p *Preview) SetSaveHandler(fn func(sigma float64, composite gocv.Mat) error) {
	if p.onSave == nil {
		p.bottom.Add(widget.NewButton("Save", p.save))
	}
	p.onSave = fn
}

// Render computes the composite for sigma and displays it. It runs on the
// calling goroutine.
func (p *Preview) Render(sigma float64) error {
	p.mu.Lock()
	p.requests++
	request := p.requests
	p.mu.Unlock()

	img, elapsed, err := p.compute(sigma)
	p.apply(request, sigma, img, elapsed, err)
	return err
}

func (p *Preview) requestRender(sigma float64) {
	p.mu.Lock()
	p.requests++
	request := p.requests
	p.mu.Unlock()

	p.status.SetText(fmt.Sprintf("Rendering σ = %g ...", sigma))

	p.pending.Add(1)
	go func() {
		img, elapsed, err := p.compute(sigma)
		p.pending.Done()
		fyne.Do(func() {
			p.apply(request, sigma, img, elapsed, err)
		})
	}()
}

func (p *Preview) compute(sigma float64) (image.Image, time.Duration, error) {
	start := time.Now()

	composite, err := p.source.Composite(sigma)
	if err != nil {
		return nil, 0, err
	}
	img, err := composite.ToImage()
	if err != nil {
		return nil, 0, fmt.Errorf("convert composite: %w", err)
	}
	return img, time.Since(start), nil
}

// apply drops results of requests superseded while they were computing.
func (p *Preview) apply(request uint64, sigma float64, img image.Image, elapsed time.Duration, err error) {
	p.mu.Lock()
	stale := request != p.requests
	if !stale && err == nil {
		p.sigma = sigma
	}
	p.mu.Unlock()

	if stale {
		p.logger.Debug("Discarding stale preview", "sigma", sigma)
		return
	}

	if err != nil {
		p.logger.Error("Preview render failed", "sigma", sigma, "error", err)
		p.status.SetText(fmt.Sprintf("Error: %v", err))
		return
	}

	p.image.File = ""
	p.image.Resource = nil
	p.image.Image = img
	p.image.Refresh()

	p.sigmaLabel.SetText(sigmaText(sigma))
	p.status.SetText(fmt.Sprintf("σ = %g rendered in %d ms", sigma, elapsed.Milliseconds()))

	p.logger.Debug("Preview updated",
		"sigma", sigma,
		"duration_ms", elapsed.Milliseconds(),
		"bounds", img.Bounds())
}

func (p *Preview) save() {
	sigma := p.Sigma()
	composite, err := p.source.Composite(sigma)
	if err == nil {
		err = p.onSave(sigma, composite)
	}
	if err != nil {
		p.logger.Error("Save failed", "sigma", sigma, "error", err)
		p.status.SetText(fmt.Sprintf("Save failed: %v", err))
		return
	}
	p.status.SetText(fmt.Sprintf("Saved σ = %g", sigma))
}

// Sigma returns the blend strength currently displayed.
func (p *Preview) Sigma() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sigma
}

// Image returns the image currently displayed.
func (p *Preview) Image() image.Image {
	return p.image.Image
}

func (p *Preview) Window() fyne.Window {
	return p.window
}

// Wait blocks until every render started from the slider has finished
// reading its composite.
func (p *Preview) Wait() {
	p.pending.Wait()
}

// ShowAndRun renders the initial sigma and blocks until the window closes
// and no render is left in flight, so the source may be closed afterwards.
func (p *Preview) ShowAndRun() {
	if err := p.Render(p.Sigma()); err != nil {
		p.logger.Warn("Initial preview failed", "error", err)
	}
	p.window.ShowAndRun()
	p.Wait()
}

func sigmaText(sigma float64) string {
	return fmt.Sprintf("%.1f", sigma)
}
