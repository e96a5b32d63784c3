package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/bags"
	"github.com/thalesfsp/bags/classifier"
	"github.com/thalesfsp/bags/dataset"
)

// runOptions holds CLI flags for run.
type runOptions struct {
	data       string
	label      string
	group      string
	gridPath   string
	folds      int
	seed       int64
	stratified bool

	metric    string
	weight    float64
	threshold float64 // < 0 disables constrained selection

	workers     int
	foldTimeout time.Duration
	jsonOut     bool
}

// envDefaults are operational defaults picked up from the environment, so
// deployments can cap resources without touching every invocation.
type envDefaults struct {
	Workers     int           `env:"BAGS_WORKERS"`
	FoldTimeout time.Duration `env:"BAGS_FOLD_TIMEOUT"`
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	defaults := envDefaults{Workers: runtime.NumCPU()}
	if err := env.Parse(&defaults); err != nil {
		slog.Warn("ignoring malformed BAGS_* environment", "err", err)
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a bias-aware grid search over a CSV dataset",
		Long: `Run a bias-aware grid search: cross-validate every configuration in
the grid file against the dataset, score accuracy and both fairness gaps,
and report the ranked results with the selected winner.

The grid file is a YAML mapping from hyperparameter name to candidate
values, for the built-in logistic-regression classifier:

  learning_rate: [0.01, 0.1, 1.0]
  epochs: [100, 400]
  l2: [0, 0.01]

Examples:
  bags run --data loans.csv --label approved --group gender --grid grid.yaml
  bags run --data loans.csv --label approved --group gender --grid grid.yaml \
      --metric equalized-odds --weight 0.3
  bags run --data loans.csv --label approved --group gender --grid grid.yaml \
      --threshold 0.05 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.data, "data", "", "CSV dataset file (required)")
	cmd.Flags().StringVar(&opts.label, "label", "", "Binary outcome column (required)")
	cmd.Flags().StringVar(&opts.group, "group", "", "Protected-attribute column (required)")
	cmd.Flags().StringVar(&opts.gridPath, "grid", "", "YAML parameter grid file (required)")
	cmd.Flags().IntVar(&opts.folds, "folds", 5, "Number of cross-validation folds")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "Seed for fold construction")
	cmd.Flags().BoolVar(&opts.stratified, "stratified", false, "Stratify folds by label")
	cmd.Flags().StringVar(&opts.metric, "metric", "demographic-parity",
		"Fairness metric: demographic-parity, equalized-odds, both")
	cmd.Flags().Float64Var(&opts.weight, "weight", 0.5, "Fairness weight in [0,1]")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", -1,
		"Select the most accurate configuration with bias <= threshold instead of the weighted score")
	cmd.Flags().IntVar(&opts.workers, "workers", defaults.Workers, "Concurrent fold evaluations")
	cmd.Flags().DurationVar(&opts.foldTimeout, "fold-timeout", defaults.FoldTimeout,
		"Per-fold evaluation timeout (0 disables)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit the result table as JSON")

	for _, flag := range []string{"data", "label", "group", "grid"} {
		_ = cmd.MarkFlagRequired(flag)
	}

	return cmd
}

func runSearch(cmd *cobra.Command, opts runOptions) error {
	metric, err := bags.ParseFairnessMetric(opts.metric)
	if err != nil {
		return err
	}

	ds, err := dataset.Load(opts.data, opts.label, opts.group)
	if err != nil {
		return err
	}

	grid, err := loadGrid(opts.gridPath)
	if err != nil {
		return err
	}

	var folds []bags.Fold
	if opts.stratified {
		folds, err = bags.StratifiedKFold(ds.Y, opts.folds, opts.seed)
	} else {
		folds, err = bags.KFold(ds.Len(), opts.folds, opts.seed)
	}

	if err != nil {
		return err
	}

	slog.Info("starting search",
		"rows", ds.Len(), "folds", len(folds), "metric", metric.String(),
		"weight", opts.weight, "workers", opts.workers)

	config := bags.DefaultSearchConfig()
	config.Metric = metric
	config.FairnessWeight = opts.weight
	config.MaxWorkers = opts.workers
	config.FoldTimeout = opts.foldTimeout
	config.Logger = slog.Default()

	result, err := bags.Search(cmd.Context(), config, grid, ds, folds, classifier.Factory)
	if err != nil {
		return reportSelectionFailure(cmd.OutOrStdout(), metric, err)
	}

	// Constrained mode re-selects over the same summaries: max accuracy
	// under the bias threshold, or an explicit failure.
	if opts.threshold >= 0 {
		best, ranked, err := bags.SelectConstrained(result.Summaries, metric, opts.threshold)
		if err != nil {
			return reportSelectionFailure(cmd.OutOrStdout(), metric, err)
		}

		result.Best = best
		result.Ranked = ranked
	}

	for _, foldErr := range result.FoldErrors {
		slog.Warn("fold failure", "err", foldErr)
	}

	if opts.jsonOut {
		return writeJSON(cmd.OutOrStdout(), metric, opts.weight, result)
	}

	writeTable(cmd.OutOrStdout(), metric, result.Summaries, result.Best)

	return nil
}

// loadGrid reads a YAML mapping from parameter name to candidate values.
func loadGrid(path string) (bags.ParamGrid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grid: %w", err)
	}

	var parsed map[string][]any
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing grid %s: %w", path, err)
	}

	return bags.ParamGrid(parsed), nil
}

// reportSelectionFailure prints the summary table carried by a
// NoFeasibleConfigurationError before surfacing the error, so the caller can
// see what was considered and why nothing qualified.
func reportSelectionFailure(w io.Writer, metric bags.FairnessMetric, err error) error {
	var noFeasible *bags.NoFeasibleConfigurationError
	if errors.As(err, &noFeasible) {
		writeTable(w, metric, noFeasible.Summaries, -1)
	}

	return err
}

type reportRow struct {
	Configuration        string  `json:"configuration"`
	Accuracy             float64 `json:"accuracy"`
	DemographicParityGap float64 `json:"demographic_parity_gap"`
	EqualizedOddsGap     float64 `json:"equalized_odds_gap"`
	CompletedFolds       int     `json:"completed_folds"`
	FailedFolds          int     `json:"failed_folds"`
	Failed               bool    `json:"failed"`
	Selected             bool    `json:"selected"`
}

type report struct {
	Metric         string      `json:"metric"`
	FairnessWeight float64     `json:"fairness_weight"`
	Configurations []reportRow `json:"configurations"`
}

func buildRows(summaries []bags.ConfigurationSummary, best int) []reportRow {
	rows := make([]reportRow, len(summaries))

	for i, summary := range summaries {
		rows[i] = reportRow{
			Configuration:        summary.Config.Key(),
			Accuracy:             summary.MeanAccuracy,
			DemographicParityGap: summary.MeanDemographicParityGap,
			EqualizedOddsGap:     summary.MeanEqualizedOddsGap,
			CompletedFolds:       summary.CompletedFolds,
			FailedFolds:          summary.FailedFolds,
			Failed:               summary.Failed,
			Selected:             i == best,
		}
	}

	return rows
}

func writeJSON(w io.Writer, metric bags.FairnessMetric, weight float64, result *bags.SearchResult) error {
	out, err := prettyjson.Marshal(report{
		Metric:         metric.String(),
		FairnessWeight: weight,
		Configurations: buildRows(result.Summaries, result.Best),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(out))

	return err
}

func writeTable(w io.Writer, metric bags.FairnessMetric, summaries []bags.ConfigurationSummary, best int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "CONFIGURATION\tACCURACY\tDP GAP\tEO GAP\tFOLDS\tSELECTED")

	selected := color.New(color.FgGreen, color.Bold)

	for _, row := range buildRows(summaries, best) {
		if row.Failed {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t0/%d\t\n",
				row.Configuration, row.FailedFolds)

			continue
		}

		mark := ""
		if row.Selected {
			mark = selected.Sprint("*")
		}

		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%d/%d\t%s\n",
			row.Configuration, row.Accuracy, row.DemographicParityGap,
			row.EqualizedOddsGap, row.CompletedFolds,
			row.CompletedFolds+row.FailedFolds, mark)
	}

	tw.Flush()

	if best >= 0 {
		fmt.Fprintf(w, "\nselected (%s): %s\n", metric.String(), summaries[best].Config.Key())
	}
}
