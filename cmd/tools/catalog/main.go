// cmd/tools/catalog/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"query-router/internal/common/logger"
	"query-router/internal/models"
	normalizeoutput "query-router/internal/workers/ai-conversation/normalize-output"
	extractparameters "query-router/internal/workers/resolution/extract-parameters"
	resolveentity "query-router/internal/workers/resolution/resolve-entity"
	resolveperiod "query-router/internal/workers/resolution/resolve-period"
	selecttemplate "query-router/internal/workers/routing/select-template"
	validateparameters "query-router/internal/workers/routing/validate-parameters"
	"query-router/pkg/registry"
)

var (
	registryPath string
	hint         string
	today        string
	logLevel     string
	multiple     bool
	unit         string
	count        int
	anchor       string
	withSteps    bool
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the template catalog and dry-run question routing offline",
	Long: `Inspect the fast-path template catalog without a database.

Entity resolution uses the embedded static security index. The trading
calendar is approximated by weekdays, so holidays are not skipped.`,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates in priority order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := selecttemplate.LoadCatalog(registryPath)
		if err != nil {
			return err
		}
		fmt.Printf("  %-22s %-14s %-8s %s\n", "NAME", "EXECUTOR", "ENTITIES", "REQUIRED")
		for _, t := range catalog.Templates() {
			fmt.Printf("  %-22s %-14s %-8s %s\n", t.Name, t.Executor, entityRange(t), joinParams(t.Required))
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a registry file against the registry schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := registryPath
		if len(args) == 1 {
			path = args[0]
		}
		reg, err := registry.LoadRegistry(path)
		if err != nil {
			return err
		}
		fmt.Printf("registry %s: %d templates OK\n", reg.Version, len(reg.Templates))
		return nil
	},
}

var matchCmd = &cobra.Command{
	Use:   "match <question>",
	Short: "Show which template a question routes to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, err := newToolkit()
		if err != nil {
			return err
		}
		normalized := extractparameters.Normalize(args[0])
		out, err := tk.selector.Execute(cmd.Context(), &selecttemplate.Input{Normalized: normalized, DeclaredHint: hint})
		if err != nil {
			return err
		}
		fmt.Printf("normalized: %s\n", normalized)
		if !out.Matched {
			fmt.Println("template:   none (fallback path)")
			return nil
		}
		via := "triggers"
		if out.ByHint {
			via = "declared hint"
		}
		fmt.Printf("template:   %s (via %s)\n", out.Template.Name, via)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract <question>",
	Short: "Match, extract and validate parameters for a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, err := newToolkit()
		if err != nil {
			return err
		}
		return tk.extract(cmd.Context(), os.Stdout, models.Question{Text: args[0], DeclaredHint: hint})
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <text>",
	Short: "Resolve a security code, name or sector against the static index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, err := newToolkit()
		if err != nil {
			return err
		}
		return tk.resolve(cmd.Context(), os.Stdout, args[0], multiple)
	},
}

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Resolve the latest trading date or a trailing trading-day range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tk, err := newToolkit()
		if err != nil {
			return err
		}
		return tk.period(cmd.Context(), os.Stdout, &resolveperiod.Input{
			Unit:   resolveperiod.PeriodUnit(unit),
			Count:  count,
			Anchor: anchor,
		})
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Run the answer recognizers over raw generator output",
	Long:  "Reads raw generator output from file, or from stdin when no file is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return err
		}
		tk, err := newToolkit()
		if err != nil {
			return err
		}
		return tk.normalize(cmd.Context(), os.Stdout, &normalizeoutput.Input{Raw: string(raw), IncludeSteps: withSteps})
	},
}

type toolkit struct {
	selector   *selecttemplate.Handler
	extractor  *extractparameters.Handler
	validator  *validateparameters.Handler
	entities   *resolveentity.Handler
	periods    *resolveperiod.Handler
	normalizer *normalizeoutput.Handler
}

func newToolkit() (*toolkit, error) {
	log := logger.NewStructured(logLevel, "console")
	loc := resolveperiod.LoadConfig().Location
	now := time.Now().In(loc)
	if today != "" {
		t, err := time.ParseInLocation(resolveperiod.DateLayout, today, loc)
		if err != nil {
			return nil, fmt.Errorf("--today must be YYYYMMDD: %w", err)
		}
		now = t.Add(17 * time.Hour)
	}
	return newToolkitAt(now, log)
}

// newToolkitAt wires every stage against the static index and a weekday
// calendar ending at now.
func newToolkitAt(now time.Time, log logger.Logger) (*toolkit, error) {
	catalog, err := selecttemplate.LoadCatalog(registryPath)
	if err != nil {
		return nil, err
	}
	entities, err := resolveentity.NewStaticResolver()
	if err != nil {
		return nil, fmt.Errorf("static index: %w", err)
	}
	entityHandler, err := resolveentity.NewHandler(resolveentity.LoadConfig(), entities, nil, log)
	if err != nil {
		return nil, err
	}

	periodConfig := resolveperiod.LoadConfig()
	cal := resolveperiod.NewCalendar(weekdays(now, periodConfig.HistoryDays))
	periods := resolveperiod.NewResolver(periodConfig, cal, nil, nil, log).WithClock(func() time.Time { return now })

	return &toolkit{
		selector:   selecttemplate.NewHandler(selecttemplate.LoadConfig(), catalog, log),
		extractor:  extractparameters.NewHandler(extractparameters.LoadConfig(), entities, periods, log),
		validator:  validateparameters.NewHandler(validateparameters.LoadConfig(), log),
		entities:   entityHandler,
		periods:    resolveperiod.NewHandler(periodConfig, periods, nil, log),
		normalizer: normalizeoutput.NewHandler(normalizeoutput.LoadConfig(), log),
	}, nil
}

func (tk *toolkit) extract(ctx context.Context, w io.Writer, q models.Question) error {
	sel, err := tk.selector.Execute(ctx, &selecttemplate.Input{Normalized: extractparameters.Normalize(q.Text), DeclaredHint: q.DeclaredHint})
	if err != nil {
		return err
	}
	if !sel.Matched {
		fmt.Fprintln(w, "no template matched; question would take the fallback path")
		return nil
	}

	bag, err := tk.extractor.Extract(ctx, q, sel.Template)
	if err != nil {
		return err
	}
	out, err := tk.validator.Execute(ctx, &validateparameters.Input{Bag: bag, Template: sel.Template})
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]interface{}{
		"template":   sel.Template.Name,
		"parameters": bag,
		"validation": out.Result,
	})
}

func (tk *toolkit) resolve(ctx context.Context, w io.Writer, text string, many bool) error {
	out, err := tk.entities.Execute(ctx, &resolveentity.Input{Text: text, Multiple: many})
	if err != nil {
		return err
	}
	return writeJSON(w, out)
}

func (tk *toolkit) period(ctx context.Context, w io.Writer, in *resolveperiod.Input) error {
	out, err := tk.periods.Execute(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(w, out)
}

func (tk *toolkit) normalize(ctx context.Context, w io.Writer, in *normalizeoutput.Input) error {
	out, err := tk.normalizer.Execute(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(w, out)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// weekdays lists Monday to Friday dates from days ago through end, oldest first.
func weekdays(end time.Time, days int) []string {
	var out []string
	for d := end.AddDate(0, 0, -days); !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d.Format(resolveperiod.DateLayout))
		}
	}
	return out
}

func entityRange(t *models.Template) string {
	if t.MaxEntities == 0 {
		return fmt.Sprintf("%d+", t.MinEntities)
	}
	return fmt.Sprintf("%d-%d", t.MinEntities, t.MaxEntities)
}

func joinParams(kinds []models.ParamKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "template registry file (default: embedded)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	matchCmd.Flags().StringVar(&hint, "hint", "", "declared template hint")
	extractCmd.Flags().StringVar(&hint, "hint", "", "declared template hint")
	extractCmd.Flags().StringVar(&today, "today", "", "pin the current date (YYYYMMDD)")
	resolveCmd.Flags().BoolVar(&multiple, "multiple", false, "resolve every entity in the text")
	periodCmd.Flags().StringVar(&unit, "unit", "", "day, week, month, quarter, half_year or year (empty: a single date)")
	periodCmd.Flags().IntVar(&count, "count", 1, "number of units")
	periodCmd.Flags().StringVar(&anchor, "anchor", "", "anchor date (YYYYMMDD, default latest)")
	periodCmd.Flags().StringVar(&today, "today", "", "pin the current date (YYYYMMDD)")
	normalizeCmd.Flags().BoolVar(&withSteps, "steps", false, "enable the tool-block recognizer and keep tool steps")

	rootCmd.AddCommand(listCmd, validateCmd, matchCmd, extractCmd, resolveCmd, periodCmd, normalizeCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
