package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/catalog"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/config"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/ledger"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/logging"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region main
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	catalogPath := flag.String("catalog", cfg.Catalog, "catalogue YAML (empty uses the embedded default)")
	signature := flag.String("signature", "", "signature tag")
	form := flag.String("form", "", "form tag")
	chrono := flag.String("chrono", "", "chrono tag")
	kbe := flag.String("kbe", "", "kbe tag")
	hook := flag.String("hook", "", "hook tag")
	seal := flag.Bool("seal", false, "compose a seal specimen")
	seed := flag.Uint64("seed", 0, "first seed")
	count := flag.Int("count", 1, "number of consecutive seeds to compose")
	workers := flag.Int("workers", cfg.Workers, "concurrent composers for a seed range")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	persist := flag.Bool("persist", false, "record the run in the ledger")
	dbPath := flag.String("db", cfg.DB, "ledger path used with --persist")
	note := flag.String("note", "", "note stored with the run")
	baseline := flag.Bool("baseline", false, "mark the persisted run as the replay baseline")
	flag.Parse()

	if *count < 1 || *workers < 1 {
		fmt.Fprintln(os.Stderr, "usage: compose [--signature s] [--hook h] [--seed n] [--count n] [--workers n] [--json] [--persist [--db path] [--baseline]]")
		os.Exit(2)
	}

	logger := cfg.Logger(os.Stderr)
	reg, err := catalog.Open(*catalogPath)
	if err != nil {
		logger.Fatalf("[COMPOSE] load catalogue: %v", err)
	}
	engine := composer.NewEngine(reg, composer.WithLogger(logger))

	base := specimen.Context{
		Signature: *signature,
		Form:      *form,
		Chrono:    *chrono,
		KBE:       *kbe,
		Hook:      *hook,
		Seed:      *seed,
		IsSeal:    *seal,
	}
	for _, t := range base.UnknownTags(reg) {
		logger.Printf("[COMPOSE] unknown tag %s is neutral", t)
	}

	outcomes := composeRange(engine, base, *count, *workers)

	if *persist {
		runID, err := persistRun(logger, *dbPath, reg.Version(), *note, *baseline, outcomes)
		if err != nil {
			logger.Fatalf("[LEDGER] %v", err)
		}
		logger.Printf("[LEDGER] run %s: %d compositions in %s", runID, len(outcomes), *dbPath)
	}

	if *jsonOut {
		if err := printJSON(outcomes); err != nil {
			logger.Fatalf("%v", err)
		}
	} else {
		printTable(outcomes)
	}

	for _, o := range outcomes {
		if o.err != nil {
			os.Exit(1)
		}
	}
}
// #endregion main

// #region compose

type outcome struct {
	ctx specimen.Context
	res composer.CompositionResult
	err error
}

// composeRange composes count consecutive seeds starting at base.Seed.
// Results come back in seed order whatever the worker count.
func composeRange(engine *composer.Engine, base specimen.Context, count, workers int) []outcome {
	out := make([]outcome, count)
	if workers > count {
		workers = count
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				ctx := base.WithSeed(base.Seed + uint64(i))
				res, err := engine.Compose(ctx)
				out[i] = outcome{ctx: ctx, res: res, err: err}
			}
		}()
	}
	for i := 0; i < count; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
	return out
}

// #endregion compose

// #region persist

func persistRun(logger *log.Logger, dbPath, version, note string, baseline bool, outcomes []outcome) (string, error) {
	store, err := ledger.NewStore(dbPath)
	if err != nil {
		return "", fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	run, err := store.CreateRun(version, note)
	if err != nil {
		return "", err
	}

	for _, o := range outcomes {
		if o.err != nil {
			if _, err := store.SaveFailure(run.RunID, o.ctx, o.err); err != nil {
				return "", err
			}
			if err := logging.LogDecision(store.DB(), logging.FailureEntry(run.RunID, o.ctx, o.err)); err != nil {
				logger.Printf("[LEDGER] provenance: %v", err)
			}
			continue
		}
		if _, err := store.SaveComposition(run.RunID, o.res); err != nil {
			return "", err
		}
		if err := logging.LogComposition(store.DB(), run.RunID, o.res); err != nil {
			logger.Printf("[LEDGER] provenance: %v", err)
		}
	}

	if baseline {
		if err := store.SetBaseline(run.RunID); err != nil {
			return "", err
		}
	}
	return run.RunID, nil
}

// #endregion persist

// #region output

type jsonOutcome struct {
	Context     specimen.Context            `json:"context"`
	Result      *composer.CompositionResult `json:"result,omitempty"`
	Fingerprint string                      `json:"fingerprint,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

func printJSON(outcomes []outcome) error {
	rows := make([]jsonOutcome, len(outcomes))
	for i, o := range outcomes {
		rows[i].Context = o.ctx
		if o.err != nil {
			rows[i].Error = o.err.Error()
			continue
		}
		res := o.res
		rows[i].Result = &res
		rows[i].Fingerprint = res.Fingerprint()
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printTable(outcomes []outcome) {
	fmt.Printf("%-12s| %-16s| %-6s| %-14s| %-8s| %s\n", "Seed", "Mechanic", "Heat", "Receipt", "Redraws", "Selections")
	fmt.Printf("%-12s+%-17s+%-7s+%-15s+%-9s+%s\n",
		"------------", "-----------------", "-------", "---------------", "---------", "----------")

	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			fmt.Printf("%-12d| ERROR %v\n", o.ctx.Seed, o.err)
			continue
		}
		r := o.res
		fmt.Printf("%-12d| %-16s| %-6s| %-14s| %-8d| %s\n",
			o.ctx.Seed, r.Mechanic, r.HeatBand, r.Receipt, r.Redraws(), selections(r))
	}
	fmt.Printf("\nSummary: %d composed, %d failed\n", len(outcomes)-failed, failed)
}

// selections renders library=variant pairs sorted by library id.
func selections(r composer.CompositionResult) string {
	parts := make([]string, 0, len(r.Selections))
	for lib, v := range r.Selections {
		parts = append(parts, fmt.Sprintf("%s=%s", lib, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// #endregion output
