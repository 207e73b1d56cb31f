package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/audit"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/catalog"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/config"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/ledger"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/logging"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/sampler"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// auditAlpha is the significance level a sweep is judged at.
const auditAlpha = 0.001

// #region main

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	dbPath := flag.String("db", cfg.DB, "ledger path")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show variant distributions of one run")
	doAudit := flag.Bool("audit", false, "compose a fresh sweep and test it against the effective weights")
	seeds := flag.Int("seeds", cfg.SweepSeeds, "sweep size for --audit")
	catalogPath := flag.String("catalog", cfg.Catalog, "catalogue YAML for --audit (empty uses the embedded default)")
	signature := flag.String("signature", "", "signature tag for --audit")
	hook := flag.String("hook", "", "hook tag for --audit")
	kbe := flag.String("kbe", "", "kbe tag for --audit")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *doAudit {
		ctx := specimen.Context{Signature: *signature, Hook: *hook, KBE: *kbe}
		failed, err := runAuditMode(*catalogPath, ctx, *seeds, *jsonOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if failed {
			os.Exit(1)
		}
		return
	}

	store, err := ledger.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *runID != "" {
		err = runDetailMode(store, *runID, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID           string `json:"run_id"`
	RegistryVersion string `json:"registry_version"`
	Note            string `json:"note,omitempty"`
	Compositions    int    `json:"compositions"`
	Failures        int    `json:"failures"`
	Redraws         int    `json:"redraws"`
	Fallbacks       int    `json:"fallbacks"`
	Baseline        bool   `json:"baseline,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func runListMode(store *ledger.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	var baselineID string
	if b, err := store.Baseline(); err == nil {
		baselineID = b.RunID
	}

	rows := make([]listRow, 0, len(runs))
	for _, run := range runs {
		s, err := store.Summarize(run.RunID)
		if err != nil {
			return err
		}
		rows = append(rows, listRow{
			RunID:           run.RunID,
			RegistryVersion: run.RegistryVersion,
			Note:            run.Note,
			Compositions:    s.Compositions,
			Failures:        s.Failures,
			Redraws:         s.Redraws,
			Fallbacks:       s.Fallbacks,
			Baseline:        run.RunID == baselineID,
			CreatedAt:       run.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-18s  %6s  %6s  %7s  %9s  %s\n",
		"Run", "Registry", "Count", "Failed", "Redraws", "Fallbacks", "Time")
	fmt.Printf("%-10s+-%-18s+-%6s+-%6s+-%7s+-%9s+-%s\n",
		"----------", "------------------", "------", "------", "-------", "---------", "--------------------")
	for _, r := range rows {
		id := shortID(r.RunID)
		if r.Baseline {
			id += "*"
		}
		fmt.Printf("%-10s  %-18s  %6d  %6d  %7d  %9d  %s\n",
			id, r.RegistryVersion, r.Compositions, r.Failures, r.Redraws, r.Fallbacks, r.CreatedAt)
	}
	if baselineID != "" {
		fmt.Println("\n* baseline")
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Summary       ledger.RunSummary         `json:"summary"`
	Distributions map[string]map[string]int `json:"distributions"`
	Events        map[string]int            `json:"events"`
	Rules         map[string]int            `json:"rules,omitempty"`
}

func runDetailMode(store *ledger.Store, runID string, jsonOut bool) error {
	summary, err := store.Summarize(runID)
	if err != nil {
		return err
	}
	records, err := store.ListCompositions(runID)
	if err != nil {
		return err
	}
	entries, err := logging.ListEntries(store.DB(), runID)
	if err != nil {
		return err
	}

	tallies := make(map[string]*audit.Tally)
	tally := func(axis, value string) {
		t, ok := tallies[axis]
		if !ok {
			t = audit.NewTally()
			tallies[axis] = t
		}
		t.Add(value)
	}
	for _, rec := range records {
		if rec.Failed() {
			continue
		}
		r := rec.Result
		tally(string(registry.LibMechanic), string(r.Mechanic))
		tally(string(registry.LibHeat), string(r.HeatBand))
		tally(string(registry.LibReceipt), string(r.Receipt))
		for lib, v := range r.Selections {
			tally(string(lib), string(v))
		}
	}

	out := detailOutput{
		Summary:       summary,
		Distributions: make(map[string]map[string]int, len(tallies)),
		Events:        make(map[string]int),
		Rules:         make(map[string]int),
	}
	for axis, t := range tallies {
		counts := make(map[string]int)
		for _, v := range t.Values() {
			counts[v] = t.Count(v)
		}
		out.Distributions[axis] = counts
	}
	for _, e := range entries {
		out.Events[e.Event]++
		if e.RuleID != "" {
			out.Rules[e.RuleID]++
		}
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Run:          %s\n", summary.Run.RunID)
	fmt.Printf("Registry:     %s\n", summary.Run.RegistryVersion)
	fmt.Printf("Created:      %s\n", summary.Run.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if summary.Run.Note != "" {
		fmt.Printf("Note:         %s\n", summary.Run.Note)
	}
	fmt.Printf("Compositions: %d (%d failed)\n", summary.Compositions, summary.Failures)
	fmt.Printf("Redraws:      %d\n", summary.Redraws)
	fmt.Printf("Fallbacks:    %d\n", summary.Fallbacks)

	axes := make([]string, 0, len(tallies))
	for axis := range tallies {
		axes = append(axes, axis)
	}
	sort.Strings(axes)
	for _, axis := range axes {
		t := tallies[axis]
		fmt.Printf("\n%s:\n", axis)
		for _, v := range t.Values() {
			fmt.Printf("  %-18s %6d  %6.2f%%\n", v, t.Count(v), 100*t.Share(v))
		}
	}

	if len(out.Rules) > 0 {
		fmt.Printf("\nRules fired:\n")
		for _, id := range sortedKeys(out.Rules) {
			fmt.Printf("  %-28s %d\n", id, out.Rules[id])
		}
	}
	return nil
}

// #endregion detail-mode

// #region audit-mode

type auditRow struct {
	Library      string  `json:"library"`
	Stat         float64 `json:"stat"`
	DF           int     `json:"df"`
	Critical     float64 `json:"critical"`
	MaxDeviation float64 `json:"max_deviation"`
	Redrawable   bool    `json:"redrawable,omitempty"`
	Pass         bool    `json:"pass"`
}

// runAuditMode composes seeds 0..n-1 under ctx and tests each library's
// observed shares against its effective weights. Libraries a rule may
// redraw are reported but not judged, since redraws move their shares.
func runAuditMode(catalogPath string, ctx specimen.Context, n int, jsonOut bool) (bool, error) {
	reg, err := catalog.Open(catalogPath)
	if err != nil {
		return false, err
	}
	c := composer.New(reg, composer.WithLogger(config.DefaultConfig().Logger(io.Discard)))

	tallies := make(map[registry.LibraryID]*audit.Tally, len(reg.Libraries()))
	for _, lib := range reg.Libraries() {
		tallies[lib.ID] = audit.NewTally()
	}
	for seed := 0; seed < n; seed++ {
		res, err := c.Compose(ctx.WithSeed(uint64(seed)))
		if err != nil {
			return false, err
		}
		for lib, v := range res.Selections {
			tallies[lib].Add(string(v))
		}
	}

	redrawable := make(map[registry.LibraryID]bool)
	for _, r := range reg.Rules() {
		redrawable[r.Redraw] = true
	}

	tags := ctx.Tags()
	failed := false
	rows := make([]auditRow, 0, len(tallies))
	for _, lib := range reg.Libraries() {
		weights := make(map[string]uint64, len(lib.Variants))
		for _, cand := range sampler.LibraryCandidates(reg.Affinity(), lib, tags, nil) {
			weights[cand.ID] = cand.Weight
		}
		expected := audit.Shares(weights)
		res, err := audit.GoodnessOfFit(tallies[lib.ID], expected)
		if err != nil {
			return false, fmt.Errorf("%s: %w", lib.ID, err)
		}
		row := auditRow{
			Library:      string(lib.ID),
			Stat:         res.Stat,
			DF:           res.DF,
			Critical:     audit.Critical(res.DF, auditAlpha),
			MaxDeviation: audit.MaxDeviation(tallies[lib.ID], expected),
			Redrawable:   redrawable[lib.ID],
			Pass:         !res.Exceeds(auditAlpha),
		}
		if !row.Pass && !row.Redrawable {
			failed = true
		}
		rows = append(rows, row)
	}

	if jsonOut {
		return failed, printJSON(rows)
	}

	fmt.Printf("Audit: %d seeds, context %s, alpha %g\n\n", n, ctx, auditAlpha)
	fmt.Printf("%-14s  %10s  %4s  %10s  %8s  %s\n", "Library", "Chi2", "DF", "Critical", "MaxDev", "Result")
	fmt.Printf("%-14s+-%10s+-%4s+-%10s+-%8s+-%s\n",
		"--------------", "----------", "----", "----------", "--------", "------")
	for _, r := range rows {
		result := "OK"
		switch {
		case !r.Pass && r.Redrawable:
			result = "SHIFTED (redraw axis)"
		case !r.Pass:
			result = "FAIL"
		}
		fmt.Printf("%-14s  %10.3f  %4d  %10.3f  %8.4f  %s\n",
			r.Library, r.Stat, r.DF, r.Critical, r.MaxDeviation, result)
	}
	return failed, nil
}

// #endregion audit-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
