package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/config"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/ledger"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/replay"
)

// #region main

func main() {
	defaultDB := config.DefaultConfig().DB
	if cfg, err := config.Load(); err == nil {
		defaultDB = cfg.DB
	}

	dbPath := flag.String("db", defaultDB, "ledger path")
	runID := flag.String("run", "", "run to export (default: the baseline run)")
	last := flag.Int("last", 0, "export only the N most recent compositions (0 exports all)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *outPath == "" || *last < 0 {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --out path/to/fixture.json [--db path/to/db] [--run id] [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, runID string, last int, outPath string) error {
	store, err := ledger.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	var r ledger.Run
	if runID == "" {
		r, err = store.Baseline()
		if errors.Is(err, ledger.ErrNoBaseline) {
			return fmt.Errorf("no baseline run set; pass --run")
		}
	} else {
		r, err = store.GetRun(runID)
	}
	if err != nil {
		return err
	}

	records, err := store.ListCompositions(r.RunID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no compositions", r.RunID)
	}
	if last > 0 && last < len(records) {
		records = records[len(records)-last:]
	}

	failures := 0
	for _, rec := range records {
		if rec.Failed() {
			failures++
		}
	}
	fmt.Printf("Found %d compositions (%d failed) in run %s\n", len(records), failures, r.RunID)

	desc := fmt.Sprintf("Ledger export: %d compositions from run %s", len(records), r.RunID)
	if r.Note != "" {
		desc += " (" + r.Note + ")"
	}
	fixture := replay.FromRecords(desc, r, records)

	if err := fixture.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", outPath)
	return nil
}

// #endregion extract
