package composer

import (
	"errors"
	"fmt"
	"log"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/gate"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/receipt"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/sampler"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/seedstream"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/validate"
)

// #region composer-struct

// Composer turns a specimen context into a CompositionResult. It reads only
// its registry, which is immutable, so one Composer may serve any number of
// goroutines.
type Composer struct {
	reg       *registry.Registry
	gate      *gate.Gate
	receipts  *receipt.Selector
	validator *validate.Validator
	logger    *log.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger routes fallback and redraw warnings to l instead of the standard
// logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// #endregion

// #region constructor

// New creates a composer over a loaded registry.
func New(reg *registry.Registry, opts ...Option) *Composer {
	c := &Composer{
		reg:       reg,
		gate:      gate.NewGate(reg),
		receipts:  receipt.NewSelector(reg),
		validator: validate.NewValidator(reg),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the composer samples from.
func (c *Composer) Registry() *registry.Registry {
	return c.reg
}

// #endregion

// #region compose

// Compose resolves one specimen. The order is fixed:
//
//  1. mechanic and heat band (gate stream)
//  2. every library, each on its own stream
//  3. receipt, restricted to the mechanic's legal set for the band
//  4. validation, redrawing only the axes a rule implicates
//
// Each step reads a reserved stream, so reordering steps 2 and 3 could not
// change any value. The only errors are data defects: a retry budget that
// runs out, or a registry that should have failed to load.
func (c *Composer) Compose(ctx specimen.Context) (CompositionResult, error) {
	res, err := c.gate.Resolve(ctx)
	if err != nil {
		return CompositionResult{}, fmt.Errorf("compose %s: %w", ctx, err)
	}

	out := CompositionResult{
		Context:         ctx,
		Mechanic:        res.Mechanic.ID,
		HeatBand:        res.Band,
		RegistryVersion: c.reg.Version(),
	}
	for _, axis := range res.Fallbacks {
		to := string(res.Band)
		if axis == registry.LibMechanic {
			to = string(res.Mechanic.ID)
		}
		c.fallback(&out, axis, seedstream.StreamGate, 0, to)
	}

	tags := ctx.Tags()
	libs := c.reg.Libraries()
	out.Selections = make(map[registry.LibraryID]registry.VariantID, len(libs))
	for _, lib := range libs {
		pick, err := c.sampleLibrary(lib, tags, seedstream.Draw(ctx.Seed, lib.Stream, 0), nil)
		if err != nil {
			return CompositionResult{}, fmt.Errorf("compose %s: %w", ctx, err)
		}
		out.Selections[lib.ID] = registry.VariantID(pick.ID)
		if pick.Fallback {
			c.fallback(&out, lib.ID, lib.Stream, 0, pick.ID)
		}
	}

	sel, err := c.receipts.Select(res.Mechanic, res.Band, tags, seedstream.Draw(ctx.Seed, seedstream.StreamReceipt, 0), nil)
	if err != nil {
		return CompositionResult{}, fmt.Errorf("compose %s: %w", ctx, err)
	}
	out.Receipt = sel.Receipt
	if sel.Fallback {
		c.fallback(&out, registry.LibReceipt, seedstream.StreamReceipt, 0, string(sel.Receipt))
	}

	if err := c.enforce(&out, res.Mechanic, tags); err != nil {
		c.logger.Printf("[COMPOSE] %v", err)
		return CompositionResult{}, err
	}
	return out, nil
}

// #endregion

// #region enforce

// enforce runs the validator and redraws implicated axes until no rule fires.
// Round k draws from retry stream k; an axis is redrawn at most once per round
// however many rules name it, and never lands on a value already rejected in
// this call. The loop is bounded by the size of the retry block.
func (c *Composer) enforce(out *CompositionResult, mech registry.MechanicProfile, tags []registry.Tag) error {
	rejected := make(map[registry.LibraryID]map[string]bool)

	for attempt := 0; attempt < MaxRetries; attempt++ {
		violations := c.validator.Violations(out.Draft())
		if len(violations) == 0 {
			return nil
		}
		stream, _ := seedstream.RetryStream(attempt)

		redrawn := make(map[registry.LibraryID]bool, len(violations))
		for _, v := range violations {
			if redrawn[v.Redraw] {
				continue
			}
			redrawn[v.Redraw] = true
			if err := c.redraw(out, v, attempt, stream, mech, tags, rejected); err != nil {
				return err
			}
		}
	}

	violations := c.validator.Violations(out.Draft())
	if len(violations) == 0 {
		return nil
	}
	return &RetryExhaustedError{
		Context:  out.Context,
		RuleID:   violations[0].RuleID,
		Axis:     violations[0].Redraw,
		Attempts: MaxRetries,
	}
}

func (c *Composer) redraw(out *CompositionResult, v validate.Violation, attempt int, stream uint32, mech registry.MechanicProfile, tags []registry.Tag, rejected map[registry.LibraryID]map[string]bool) error {
	axis := v.Redraw
	index, ok := redrawIndex(c.reg, axis)
	if !ok {
		return fmt.Errorf("rule %s redraws unknown axis %s in registry %s", v.RuleID, axis, c.reg.Version())
	}
	raw := seedstream.Draw(out.Context.Seed, stream, index)

	if rejected[axis] == nil {
		rejected[axis] = make(map[string]bool)
	}
	exhausted := &RetryExhaustedError{Context: out.Context, RuleID: v.RuleID, Axis: axis, Attempts: attempt + 1}

	var from, to string
	var fallback bool
	if axis == registry.LibReceipt {
		from = string(out.Receipt)
		rejected[axis][from] = true
		sel, err := c.receipts.Select(mech, out.HeatBand, tags, raw, rejected[axis])
		if errors.Is(err, sampler.ErrNoCandidates) {
			return exhausted
		}
		if err != nil {
			return fmt.Errorf("redraw receipt: %w", err)
		}
		out.Receipt = sel.Receipt
		to, fallback = string(sel.Receipt), sel.Fallback
	} else {
		lib, _ := c.reg.Library(axis)
		from = string(out.Selections[axis])
		rejected[axis][from] = true
		pick, err := c.sampleLibrary(lib, tags, raw, rejected[axis])
		if errors.Is(err, sampler.ErrNoCandidates) {
			return exhausted
		}
		if err != nil {
			return err
		}
		out.Selections[axis] = registry.VariantID(pick.ID)
		to, fallback = pick.ID, pick.Fallback
	}

	out.Trace = append(out.Trace, TraceEvent{
		Kind:    TraceRedraw,
		Axis:    axis,
		Attempt: attempt + 1,
		Stream:  stream,
		RuleID:  v.RuleID,
		From:    from,
		To:      to,
	})
	if fallback {
		c.fallback(out, axis, stream, attempt+1, to)
	}
	return nil
}

// #endregion

// #region helpers

// sampleLibrary draws one variant of lib. A non-empty exclude marks a redraw,
// which never lands on a vetoed variant.
func (c *Composer) sampleLibrary(lib registry.Library, tags []registry.Tag, raw uint64, exclude map[string]bool) (sampler.Pick, error) {
	cands := sampler.LibraryCandidates(c.reg.Affinity(), lib, tags, exclude)
	if len(exclude) > 0 {
		cands = sampler.Unvetoed(cands)
	}
	pick, err := sampler.Sample(cands, raw)
	if err != nil {
		return sampler.Pick{}, fmt.Errorf("sample library %s: %w", lib.ID, err)
	}
	return pick, nil
}

// fallback records a uniform fallback. Every weight of the axis was zero for
// this context, which means the affinity data vetoes or zeroes too much.
func (c *Composer) fallback(out *CompositionResult, axis registry.LibraryID, stream uint32, attempt int, to string) {
	out.Trace = append(out.Trace, TraceEvent{
		Kind:    TraceFallback,
		Axis:    axis,
		Attempt: attempt,
		Stream:  stream,
		To:      to,
	})
	c.logger.Printf("[COMPOSE] fallback: seed=%d axis=%s stream=%d → %s (all weights zero, registry %s)",
		out.Context.Seed, axis, stream, to, c.reg.Version())
}

// #endregion
