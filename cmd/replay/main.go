package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/catalog"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/config"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/ledger"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/replay"
)

// #region main

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	dbPath := flag.String("db", "", "ledger path (DB mode)")
	runID := flag.String("run", "", "run to replay in DB mode (default: the baseline run)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	catalogPath := flag.String("catalog", cfg.Catalog, "catalogue YAML to replay against (empty uses the embedded default)")
	verbose := flag.Bool("v", false, "log redraws and fallbacks while composing")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/compositor.db [--run id]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	reg, err := catalog.Open(*catalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalogue: %v\n", err)
		os.Exit(2)
	}
	logw := io.Discard
	if *verbose {
		logw = os.Stderr
	}
	engine := composer.NewEngine(reg, composer.WithLogger(cfg.Logger(logw)))

	var fixture *replay.Fixture
	if *fixturePath != "" {
		fixture, err = replay.LoadFixture(*fixturePath)
	} else {
		fixture, err = fixtureFromLedger(*dbPath, *runID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	if fixture.RegistryVersion != "" && fixture.RegistryVersion != reg.Version() {
		log.Printf("[REPLAY] recorded against registry %s, replaying against %s", fixture.RegistryVersion, reg.Version())
	}

	results := replay.Replay(engine, fixture.Cases)
	os.Exit(printComparison(results))
}

// #endregion main

// #region db-extract

// fixtureFromLedger turns a ledger run into replay cases. An empty runID
// selects the baseline run.
func fixtureFromLedger(dbPath, runID string) (*replay.Fixture, error) {
	store, err := ledger.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var run ledger.Run
	if runID == "" {
		run, err = store.Baseline()
		if errors.Is(err, ledger.ErrNoBaseline) {
			return nil, fmt.Errorf("no baseline run set; pass --run or compose with --baseline")
		}
	} else {
		run, err = store.GetRun(runID)
	}
	if err != nil {
		return nil, err
	}

	records, err := store.ListCompositions(run.RunID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("run %s has no compositions", run.RunID)
	}
	return replay.FromRecords("run "+run.RunID, run, records), nil
}

// #endregion db-extract

// #region output

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.ReplayResult) int {
	fmt.Printf("%-16s| %-8s| %s\n", "Case", "Result", "Detail")
	fmt.Printf("%-16s+%-9s+%s\n", "----------------", "---------", "--------")

	for _, r := range results {
		detail := r.Reason
		switch {
		case r.Action == replay.ActionMatch && r.Got != nil:
			detail = shortID(r.Got.Fingerprint())
		case len(r.Diffs) > 0:
			detail = fmt.Sprintf("%d differences", len(r.Diffs))
		}
		fmt.Printf("%-16s| %-8s| %s\n", r.Name, r.Action, detail)
		for _, d := range r.Diffs {
			fmt.Printf("%-16s|         |   %s\n", "", d)
		}
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d drift, %d error\n", s.TotalCases, s.Matches, s.Drifts, s.Errors)

	if !s.Clean() {
		return 1
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
