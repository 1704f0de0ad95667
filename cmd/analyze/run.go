package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-tender/infrastructure/middleware"
	"github.com/ahrav/go-tender/internal/application"
	"github.com/ahrav/go-tender/internal/domain"
)

var (
	referencePath string
	proposalPath  string
	depth         string
	modelOverride string
	profileName   string
	outputFormat  string
	timeout       time.Duration
	dumpMetrics   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Analyze one proposal",
	Long: `Analyze one proposal against a reference requirements document.

Examples:
  analyze run --reference tz.txt --proposal offer.txt
  analyze run -r tz.txt -p offer.txt --depth full --model anthropic/claude-3-5-sonnet-20241022
  analyze run -r tz.txt -p offer.txt --profile cost_focused --format text`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	runCmd.Flags().StringVarP(&referencePath, "reference", "r", "", "reference (requirements) document, plain text")
	runCmd.Flags().StringVarP(&proposalPath, "proposal", "p", "", "proposal document, plain text")
	runCmd.Flags().StringVarP(&depth, "depth", "d", string(domain.DepthDetailed), "analysis depth (basic, detailed, full)")
	runCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "model override, provider/model or a bare model name")
	runCmd.Flags().StringVar(&profileName, "profile", "", "weight profile name (defaults to the configured default)")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "output format (json, text)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall analysis timeout")
	runCmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "write Prometheus metrics to stderr when done")
	_ = runCmd.MarkFlagRequired("proposal")
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req, err := buildRequest(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetricsWithRegisterer(registry)

	analyzer, err := application.NewAnalyzer(cfg, application.AnalyzerOptions{
		Logger:  logger,
		Metrics: metrics,
		Tracing: true,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	logger.Info("analysis complete",
		zap.String("id", result.ID.String()),
		zap.Float64("overall_score", result.OverallScore),
		zap.String("recommendation", string(result.Recommendation)),
		zap.Bool("fallback_mode", result.FallbackMode),
		zap.Duration("processing_time", result.ProcessingTime))

	out := cmd.OutOrStdout()
	switch outputFormat {
	case "json":
		err = outputJSON(out, result)
	case "text":
		err = outputText(out, result)
	default:
		err = fmt.Errorf("unknown output format %q", outputFormat)
	}
	if err != nil {
		return err
	}

	if dumpMetrics {
		return writeMetrics(cmd.ErrOrStderr(), registry)
	}
	return nil
}

func buildRequest(cfg *application.Config) (*domain.AnalysisRequest, error) {
	proposal, err := readText(proposalPath)
	if err != nil {
		return nil, err
	}
	var reference string
	if referencePath != "" {
		if reference, err = readText(referencePath); err != nil {
			return nil, err
		}
	}

	override, err := domain.ParseModelOverride(modelOverride)
	if err != nil {
		return nil, err
	}
	opts := []domain.RequestOption{
		domain.WithDepth(domain.Depth(strings.ToLower(depth))),
		domain.WithModelOverride(override),
	}
	if profileName != "" {
		p, ok := cfg.Profile(profileName)
		if !ok {
			return nil, fmt.Errorf("unknown weight profile %q", profileName)
		}
		opts = append(opts, domain.WithWeights(p))
	}
	return domain.NewAnalysisRequest(reference, proposal, opts...)
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func outputJSON(w io.Writer, result *domain.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func outputText(w io.Writer, r *domain.AnalysisResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score: %.1f  Recommendation: %s  Confidence: %s (%.2f)\n",
		r.OverallScore, strings.ToUpper(string(r.Recommendation)), r.ConfidenceLevel, r.Confidence)
	if r.FallbackMode {
		b.WriteString("Mode: fallback (no AI analysis)\n")
	} else {
		fmt.Fprintf(&b, "Models: %s\n", strings.Join(r.ModelsUsed, ", "))
	}

	fin := r.Financials
	if fin.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", fin.CompanyName)
	}
	if fin.TotalCost != nil {
		fmt.Fprintf(&b, "Total cost: %.2f %s (%s)\n", *fin.TotalCost, fin.Currency, fin.CostSource)
	}
	if fin.TimelineMonths != nil {
		fmt.Fprintf(&b, "Timeline: %.1f months (%s)\n", *fin.TimelineMonths, fin.TimelineSource)
	}

	b.WriteString("\nCriteria:\n")
	for _, c := range domain.AllCriteria() {
		s := r.Criteria[c]
		if s.Evaluated() {
			fmt.Fprintf(&b, "  %-24s %5.1f  weight %.2f  %s\n", c.Title(), s.Score, s.Weight, s.Rationale)
			continue
		}
		fmt.Fprintf(&b, "  %-24s     -  %s\n", c.Title(), s.Rationale)
	}

	if len(r.Findings) > 0 {
		b.WriteString("\nFindings:\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
	}
	if r.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", r.Summary)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
