// Package chart renders the recent price window as an echarts line chart,
// optionally rasterised to PNG through headless Chrome.
package chart

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"tradesim/internal/logger"
	"tradesim/internal/market"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	talib "github.com/markcheno/go-talib"
)

const (
	colorUp            = "#16a34a"
	colorDown          = "#dc2626"
	fillUp             = "rgba(22, 163, 74, 0.1)"
	fillDown           = "rgba(220, 38, 38, 0.1)"
	colorSMA           = "#2563eb"
	colorBackground    = "#ffffff"
	colorTextPrimary   = "#1e293b"
	colorTextSecondary = "#64748b"

	chartWidthPx  = 960
	chartHeightPx = 420

	DefaultSMAPeriod = 10
)

var (
	ErrNoData      = errors.New("no price points to chart")
	ErrPNGDisabled = errors.New("png rendering disabled")
)

type Options struct {
	Symbol     string
	SMAPeriod  int
	PNGEnabled bool
}

// Renderer keeps the HTML of the last rendered window. It implements the
// desk's series sink.
type Renderer struct {
	opts Options

	mu   sync.RWMutex
	html []byte
	up   bool
	ok   bool
}

func NewRenderer(o Options) *Renderer {
	if o.SMAPeriod < 0 {
		o.SMAPeriod = 0
	}
	return &Renderer{opts: o}
}

func (r *Renderer) Render(points []market.Point) {
	html, err := BuildHTML(r.opts.Symbol, points, r.opts.SMAPeriod)
	if err != nil {
		logger.Debugf("chart render skipped: %v", err)
		return
	}
	up, ok := market.Trend(points)
	r.mu.Lock()
	r.html = html
	r.up, r.ok = up, ok
	r.mu.Unlock()
}

// HTML returns the last rendered page, or nil before the first render.
func (r *Renderer) HTML() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.html == nil {
		return nil
	}
	out := make([]byte, len(r.html))
	copy(out, r.html)
	return out
}

func (r *Renderer) Trend() (up bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.up, r.ok
}

func (r *Renderer) PNGEnabled() bool {
	return r.opts.PNGEnabled
}

// PNG rasterises the last rendered page.
func (r *Renderer) PNG(ctx context.Context) ([]byte, error) {
	if !r.opts.PNGEnabled {
		return nil, ErrPNGDisabled
	}
	html := r.HTML()
	if html == nil {
		return nil, ErrNoData
	}
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, fmt.Errorf("headless chrome unavailable: %w", err)
	}
	return renderHTMLToPNG(ctx, html, chartWidthPx, chartHeightPx)
}

// BuildHTML draws points as a filled line, green when the window closes at or
// above its open and red otherwise, with an SMA overlay when smaPeriod > 1
// and enough points exist.
func BuildHTML(symbol string, points []market.Point, smaPeriod int) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}
	up, _ := market.Trend(points)
	stroke, fill := colorDown, fillDown
	if up {
		stroke, fill = colorUp, fillUp
	}

	xAxis := make([]string, len(points))
	closes := make([]float64, len(points))
	data := make([]opts.LineData, len(points))
	for i, p := range points {
		xAxis[i] = p.Label()
		closes[i] = p.Price.InexactFloat64()
		data[i] = opts.LineData{Value: round(closes[i], 2)}
	}

	minPrice, maxPrice := priceBounds(closes)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.001)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         symbol,
			Subtitle:      fmt.Sprintf("last %s", round2(closes[len(closes)-1])),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(smaPeriod > 1), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			Min:       round(minPrice-padding, 2),
			Max:       round(maxPrice+padding, 2),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Price", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: stroke, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: fill, Opacity: opts.Float(1)}),
	)
	if smaPeriod > 1 && len(closes) >= smaPeriod {
		line.AddSeries(fmt.Sprintf("SMA(%d)", smaPeriod), smaLine(closes, smaPeriod),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSMA, Width: 1}),
		)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// smaLine leaves the lookback period empty.
func smaLine(closes []float64, period int) []opts.LineData {
	sma := talib.Sma(closes, period)
	out := make([]opts.LineData, len(closes))
	for i := range out {
		if i < period-1 || i >= len(sma) || math.IsNaN(sma[i]) {
			out[i] = opts.LineData{Value: nil}
			continue
		}
		out[i] = opts.LineData{Value: round(sma[i], 2)}
	}
	return out
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func round2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func priceBounds(closes []float64) (minVal, maxVal float64) {
	if len(closes) == 0 {
		return 0, 0
	}
	minVal, maxVal = closes[0], closes[0]
	for _, c := range closes {
		if c < minVal {
			minVal = c
		}
		if c > maxVal {
			maxVal = c
		}
	}
	return minVal, maxVal
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		defer cancel()
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(800 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
