package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"mineralclassifier/internal/services/ai"
)

// Set3 qualitative palette; bars cycle through it.
var palette = []string{
	"#8dd3c7", "#ffffb3", "#bebada", "#fb8072", "#80b1d3", "#fdb462",
	"#b3de69", "#fccde5", "#d9d9d9", "#bc80bd", "#ccebc5", "#ffed6f",
}

const (
	chartWidth   = 720
	chartHeight  = 500
	marginTop    = 80
	marginBottom = 110
	marginLeft   = 60
	marginRight  = 30
)

type bar struct {
	X, Y, Width, Height string
	LabelX, LabelY      string
	ValueY              string
	Color               string
	Name                string
	Value               string
	Best                bool
}

type tick struct {
	Y     string
	Label string
}

type chartData struct {
	Width, Height   int
	Left, Right     int
	Bottom          int
	TickX           int
	CenterX         int
	CenterY         int
	XTitleY         int
	Title, Subtitle string
	XTitle, YTitle  string
	Bars            []bar
	Ticks           []tick
}

var chartTemplate = template.Must(template.New("chart").Parse(`<svg xmlns="http://www.w3.org/2000/svg" class="score-chart" viewBox="0 0 {{.Width}} {{.Height}}" width="{{.Width}}" height="{{.Height}}" role="img">
<rect width="{{.Width}}" height="{{.Height}}" fill="#ffffff"/>
<text x="{{.CenterX}}" y="32" text-anchor="middle" font-size="16" font-weight="bold">{{.Title}}</text>
<text class="subtitle" x="{{.CenterX}}" y="54" text-anchor="middle" font-size="12" fill="#555555">{{.Subtitle}}</text>
{{- range .Ticks}}
<line x1="{{$.Left}}" x2="{{$.Right}}" y1="{{.Y}}" y2="{{.Y}}" stroke="#e5e5e5"/>
<text x="{{$.TickX}}" y="{{.Y}}" text-anchor="end" dominant-baseline="middle" font-size="11">{{.Label}}</text>
{{- end}}
<line x1="{{.Left}}" x2="{{.Right}}" y1="{{.Bottom}}" y2="{{.Bottom}}" stroke="#444444"/>
{{- range .Bars}}
<g class="bar{{if .Best}} best{{end}}">
<rect x="{{.X}}" y="{{.Y}}" width="{{.Width}}" height="{{.Height}}" fill="{{.Color}}"{{if .Best}} stroke="#333333" stroke-width="2"{{end}}><title>{{.Name}}: {{.Value}}</title></rect>
<text x="{{.LabelX}}" y="{{.ValueY}}" text-anchor="middle" font-size="11">{{.Value}}</text>
<text transform="translate({{.LabelX}},{{.LabelY}}) rotate(45)" font-size="11">{{.Name}}</text>
</g>
{{- end}}
<text x="{{.CenterX}}" y="{{.XTitleY}}" text-anchor="middle" font-size="12">{{.XTitle}}</text>
<text transform="translate(16,{{.CenterY}}) rotate(-90)" text-anchor="middle" font-size="12">{{.YTitle}}</text>
</svg>`))

func coord(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Chart renders the distribution as an SVG bar chart, bars sorted by
// descending probability and the winning label outlined and named in the
// subtitle.
func Chart(p *ai.Prediction) (template.HTML, error) {
	if p == nil || len(p.Scores) == 0 {
		return "", fmt.Errorf("prediction has no scores")
	}
	ranked := p.Ranked()

	plotW := float64(chartWidth - marginLeft - marginRight)
	plotH := float64(chartHeight - marginTop - marginBottom)
	bottom := float64(chartHeight - marginBottom)
	band := plotW / float64(len(ranked))

	data := chartData{
		Width:    chartWidth,
		Height:   chartHeight,
		Left:     marginLeft,
		Right:    chartWidth - marginRight,
		Bottom:   chartHeight - marginBottom,
		TickX:    marginLeft - 6,
		CenterX:  chartWidth / 2,
		CenterY:  marginTop + int(plotH)/2,
		XTitleY:  chartHeight - 8,
		Title:    "🔬 Mineral classification results",
		Subtitle: fmt.Sprintf("Best prediction: %s (%s)", strings.ToUpper(p.Label), Percent(p.Confidence, 1)),
		XTitle:   "Mineral types",
		YTitle:   "Confidence (%)",
	}

	for pct := 0; pct <= 100; pct += 20 {
		data.Ticks = append(data.Ticks, tick{
			Y:     coord(bottom - plotH*float64(pct)/100),
			Label: fmt.Sprintf("%d", pct),
		})
	}

	for i, s := range ranked {
		h := plotH * s.Probability
		x := marginLeft + band*float64(i) + band*0.15
		data.Bars = append(data.Bars, bar{
			X:      coord(x),
			Y:      coord(bottom - h),
			Width:  coord(band * 0.7),
			Height: coord(h),
			LabelX: coord(x + band*0.35),
			LabelY: coord(bottom + 14),
			ValueY: coord(bottom - h - 4),
			Color:  palette[i%len(palette)],
			Name:   Capitalize(s.Label),
			Value:  Percent(s.Probability, 1),
			Best:   i == 0,
		})
	}

	var buf bytes.Buffer
	if err := chartTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return template.HTML(buf.String()), nil
}
