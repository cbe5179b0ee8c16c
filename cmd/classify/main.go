package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mineralclassifier/internal/config"
	"mineralclassifier/internal/imageio"
	"mineralclassifier/internal/logger"
	"mineralclassifier/internal/render"
	"mineralclassifier/internal/services/ai"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Width(14)
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	bestBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const barWidth = 30

type options struct {
	modelDir string
	runtime  string
	asJSON   bool
	top      int
	verbose  bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := config.Load()
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "classify IMAGE...",
		Short: "🔬 Classify mineral photos from the command line",
		Long: `Loads the model directory used by the web server and prints the
predicted mineral with the full score ranking for every image given.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := openClassifier(cfg, opts)
			if err != nil {
				return err
			}
			defer classifier.Close()

			failed := 0
			for _, path := range args {
				p, err := classifyFile(classifier, path)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render(fmt.Sprintf("❌ %s: %v", path, err)))
					failed++
					continue
				}
				if opts.asJSON {
					if err := printJSON(cmd.OutOrStdout(), path, p, opts.top); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatPrediction(path, p, opts.top))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d images could not be classified", failed, len(args))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.modelDir, "model", cfg.ModelDir, "model directory")
	cmd.PersistentFlags().StringVar(&opts.runtime, "runtime", cfg.Runtime, "inference runtime (auto, onnx, opencv, linear)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log model loading")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print one JSON object per image")
	cmd.Flags().IntVar(&opts.top, "top", 0, "only show the N best scores (0 shows all)")

	cmd.AddCommand(classesCmd(cfg, opts))
	return cmd
}

func classesCmd(cfg *config.Config, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the labels the model knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := openClassifier(cfg, opts)
			if err != nil {
				return err
			}
			defer classifier.Close()

			status := classifier.Status()
			fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(fmt.Sprintf("📚 %d classes", len(status.Classes)))+
				mutedStyle.Render(fmt.Sprintf("  (%s on %s)", status.Runtime, status.Device)))
			for i, name := range status.Classes {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", i, render.Capitalize(name))
			}
			return nil
		},
	}
}

func openClassifier(cfg *config.Config, opts *options) (*ai.Classifier, error) {
	c := *cfg
	c.ModelDir = opts.modelDir
	c.Runtime = strings.ToLower(strings.TrimSpace(opts.runtime))

	log := logger.NewDiscard()
	if opts.verbose {
		log = logger.NewConsole()
	}

	classifier := ai.NewClassifier(&c, log)
	if _, err := classifier.Load(c.ModelDir); err != nil {
		return nil, err
	}
	return classifier, nil
}

func classifyFile(classifier *ai.Classifier, path string) (*ai.Prediction, error) {
	img, err := imageio.Normalize(path)
	if err != nil {
		return nil, err
	}
	return classifier.Predict(img)
}

// jsonRecord is one line of --json output.
type jsonRecord struct {
	File string `json:"file"`
	*ai.Prediction
}

// printJSON writes p as one JSON line. With top > 0 only the best scores are
// kept, ordered by descending probability.
func printJSON(w io.Writer, path string, p *ai.Prediction, top int) error {
	if top > 0 {
		trimmed := *p
		trimmed.Scores = topScores(p, top)
		p = &trimmed
	}
	return json.NewEncoder(w).Encode(jsonRecord{File: path, Prediction: p})
}

// topScores returns the n best scores, or all of them when n <= 0.
func topScores(p *ai.Prediction, n int) []ai.Score {
	ranked := p.Ranked()
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

func formatPrediction(path string, p *ai.Prediction, top int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("🎯 %s", strings.ToUpper(p.Label))))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s  %s", render.Percent(p.Confidence, 2), path)))
	b.WriteString("\n")

	for i, s := range topScores(p, top) {
		n := int(s.Probability*barWidth + 0.5)
		style := barStyle
		if i == 0 {
			style = bestBarStyle
		}
		bar := style.Render(strings.Repeat("█", n)) + mutedStyle.Render(strings.Repeat("░", barWidth-n))
		fmt.Fprintf(&b, "%s %s %s\n", labelStyle.Render(render.Capitalize(s.Label)), bar, render.Percent(s.Probability, 2))
	}
	return b.String()
}
