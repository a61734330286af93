package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/docregen/fontresolve/core"
	"github.com/docregen/fontresolve/core/font"
	"github.com/docregen/fontresolve/core/font/coverage"
	"github.com/docregen/fontresolve/core/font/fontcheck"
	"github.com/docregen/fontresolve/core/font/fontregistry"
	"github.com/docregen/fontresolve/core/font/fontstore"
	"github.com/docregen/fontresolve/core/font/subst"
)

// Policy tells the resolver what to do when the explicit fallback chain is
// exhausted and only the baseline font remains. It is always passed in by
// the caller, never inferred from the process environment.
type Policy int

const (
	// PolicyLenient falls through to the baseline font and records a
	// high-severity substitution.
	PolicyLenient Policy = iota
	// PolicyStrict raises instead of silently using the baseline font.
	PolicyStrict
)

// Registrar is the rendering engine's font-registration interface. The
// resolver probes it after local validation passes; a refusal rejects the
// candidate. A nil Registrar accepts every font.
type Registrar interface {
	Register(name string, data []byte) error
}

// CoverageAnalyzer yields the coverage ratio of a font for a text.
// *coverage.Analyzer satisfies it.
type CoverageAnalyzer interface {
	Ratio(f *font.ScalableFont, text string) float64
}

// Resolved is the outcome of a resolution: exactly one usable font.
type Resolved struct {
	Name       string
	Path       string
	IsFallback bool
	// Reason is meaningful only when IsFallback is set.
	Reason subst.Reason
	// Rejected documents chain candidates that were skipped, for
	// diagnostics.
	Rejected []CandidateRejection
}

// CandidateRejection notes why one chain candidate was skipped.
type CandidateRejection struct {
	Name   string
	Reason subst.Reason
	Detail string
}

// FallbackExhaustedError reports that neither the requested font, nor any
// chain candidate, nor the baseline font could be used. This is the only
// resolution failure that propagates to callers.
type FallbackExhaustedError struct {
	Requested string
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("fallback exhausted: no usable font for %q", e.Requested)
}

// Resolver orchestrates lookup, validation, coverage analysis and
// fallback-chain selection. Construct one per processing run and share the
// store between runs; the tracker belongs to this run alone.
type Resolver struct {
	store     *fontstore.Store
	checker   *fontcheck.Checker
	analyzer  CoverageAnalyzer
	tracker   *subst.Tracker
	registrar Registrar
	policy    Policy
	fonts     *fontregistry.Registry
}

// New creates a Resolver. checker, analyzer and tracker may be nil, in
// which case fresh instances are used; registrar may be nil for engines
// that accept every font.
func New(store *fontstore.Store, checker *fontcheck.Checker, analyzer CoverageAnalyzer,
	tracker *subst.Tracker, registrar Registrar, policy Policy) *Resolver {
	//
	if checker == nil {
		checker = fontcheck.New()
	}
	if analyzer == nil {
		analyzer = coverage.New()
	}
	if tracker == nil {
		tracker = subst.NewTracker()
	}
	return &Resolver{
		store:     store,
		checker:   checker,
		analyzer:  analyzer,
		tracker:   tracker,
		registrar: registrar,
		policy:    policy,
		fonts:     fontregistry.NewRegistry(),
	}
}

// Tracker returns the run's substitution tracker.
func (rs *Resolver) Tracker() *subst.Tracker {
	return rs.tracker
}

// candidate is the explicit per-candidate outcome: either accepted with a
// coverage ratio, or rejected with a reason. No control flow by exception.
type candidate struct {
	name     string
	f        *font.ScalableFont
	path     string
	index    int
	ratio    float64
	accepted bool
	baseline bool
	reason   subst.Reason
	detail   string
}

// Resolve returns exactly one usable font for the requested name and text.
// See ResolveAt.
func (rs *Resolver) Resolve(ctx context.Context, requested string, text string, chain Chain) (Resolved, error) {
	return rs.ResolveAt(ctx, requested, text, chain, "", 0)
}

// ResolveAt is Resolve with the document position (element, page) attached
// to any substitution record.
//
// Selection rule: the requested font wins outright on full coverage.
// Otherwise all validating candidates compete; the highest coverage ratio
// wins, ties go to the earliest chain position (with the requested font
// ahead of the whole chain). A ratio of 1.0 is the maximum and stops the
// walk. If nothing validates, the baseline font is the last resort; if even
// the baseline fails, a FallbackExhaustedError propagates.
func (rs *Resolver) ResolveAt(ctx context.Context, requested string, text string, chain Chain,
	elementID string, page int) (Resolved, error) {
	//
	req := rs.evaluateRequested(requested, text)
	if req.accepted && req.ratio == 1.0 {
		tracer().Debugf("font %q is usable as requested", requested)
		return Resolved{Name: requested, Path: req.path}, nil
	}

	var rejected []CandidateRejection
	var best *candidate
	if req.accepted {
		// partial coverage: the requested font still competes, and wins
		// ties against every chain candidate
		best = &req
	}
	explicitAccepted := false
	chain = chain.Terminated()
	for i, name := range chain {
		if err := ctx.Err(); err != nil {
			return Resolved{}, err
		}
		if best != nil && best.ratio == 1.0 {
			break // 1.0 is the maximum, nothing can exceed it
		}
		if font.NormalizeFontname(name) == font.NormalizeFontname(requested) {
			continue // already evaluated as the requested font
		}
		cand := rs.evaluateCandidate(name, text, i)
		if !cand.accepted {
			tracer().Infof("fallback candidate %q rejected: %s", name, cand.detail)
			rejected = append(rejected, CandidateRejection{
				Name:   name,
				Reason: cand.reason,
				Detail: cand.detail,
			})
			continue
		}
		if !cand.baseline {
			explicitAccepted = true
		}
		if best == nil || cand.ratio > best.ratio {
			best = &cand
		}
	}

	if best == nil {
		err := core.WrapError(&FallbackExhaustedError{Requested: requested}, core.EEXHAUSTED,
			"no usable font for %q: all candidates and the baseline font failed", requested)
		tracer().Errorf(err.Error())
		return Resolved{Rejected: rejected}, err
	}
	lastResort := best.baseline && !explicitAccepted && !req.accepted
	if lastResort && rs.policy == PolicyStrict {
		err := core.WrapError(&FallbackExhaustedError{Requested: requested}, core.EEXHAUSTED,
			"no usable font for %q: explicit fallback chain exhausted (strict policy)", requested)
		tracer().Errorf(err.Error())
		return Resolved{Rejected: rejected}, err
	}

	if best == &req {
		// partial coverage, but no fallback candidate did better
		tracer().Infof("font %q kept with partial coverage %.2f", requested, req.ratio)
		return Resolved{Name: requested, Path: req.path, Rejected: rejected}, nil
	}

	rec := subst.NewRecord(requested, best.name, req.reason, text)
	rec.ElementID = elementID
	rec.PageNumber = page
	rec.LastResort = lastResort
	rs.tracker.Track(rec)
	return Resolved{
		Name:       best.name,
		Path:       best.path,
		IsFallback: true,
		Reason:     req.reason,
		Rejected:   rejected,
	}, nil
}

// evaluateRequested produces the outcome for the font the caller asked for.
// Its rejection reason doubles as the substitution reason should a fallback
// win.
func (rs *Resolver) evaluateRequested(requested string, text string) candidate {
	cand := candidate{name: requested, index: -1}
	if font.NormalizeFontname(requested) == font.NormalizeFontname(font.BaselineFontName) {
		return rs.evaluateBaseline(cand, text)
	}
	rec, found := rs.store.Lookup(requested)
	if !found {
		cand.reason = subst.MissingFile
		cand.detail = fmt.Sprintf("no font file for %q", requested)
		tracer().Infof("requested font %q not in store", requested)
		return cand
	}
	return rs.evaluateFile(cand, rec.Path, text)
}

// evaluateCandidate produces the outcome for one fallback-chain entry.
func (rs *Resolver) evaluateCandidate(name string, text string, index int) candidate {
	cand := candidate{name: name, index: index}
	if font.NormalizeFontname(name) == font.NormalizeFontname(font.BaselineFontName) {
		return rs.evaluateBaseline(cand, text)
	}
	rec, found := rs.store.Lookup(name)
	if !found {
		cand.reason = subst.MissingFile
		cand.detail = fmt.Sprintf("no font file for %q", name)
		return cand
	}
	return rs.evaluateFile(cand, rec.Path, text)
}

// evaluateFile validates a font file, probes engine registration and
// computes coverage. It fills exactly one of accepted / (reason, detail).
func (rs *Resolver) evaluateFile(cand candidate, path string, text string) candidate {
	res := rs.checker.ValidateFile(path)
	if !res.Valid {
		cand.reason = subst.ValidationFailed
		cand.detail = strings.Join(res.Errors, "; ")
		return cand
	}
	f, err := rs.fonts.LoadFont(path)
	if err != nil {
		cand.reason = subst.ValidationFailed
		cand.detail = err.Error()
		return cand
	}
	if rs.registrar != nil {
		if err := rs.registrar.Register(cand.name, f.Binary); err != nil {
			cand.reason = subst.RegistrationRejected
			cand.detail = fmt.Sprintf("engine refused %q: %v", cand.name, err)
			tracer().Infof(cand.detail)
			return cand
		}
	}
	cand.f = f
	cand.path = path
	cand.ratio = rs.analyzer.Ratio(f, text)
	if cand.index < 0 && cand.ratio < 1.0 {
		cand.reason = subst.InsufficientCoverage
		cand.detail = fmt.Sprintf("%q covers %.0f%% of the text", cand.name, cand.ratio*100)
	}
	cand.accepted = true
	return cand
}

// evaluateBaseline resolves the chain-terminating baseline font from the
// engine built-in, bypassing the store.
func (rs *Resolver) evaluateBaseline(cand candidate, text string) candidate {
	f := font.BaselineFont()
	rs.fonts.StoreFont(f)
	if rs.registrar != nil {
		if err := rs.registrar.Register(f.Fontname, f.Binary); err != nil {
			// the baseline font is assumed always registrable; this is a
			// critical condition and surfaces as exhaustion
			cand.reason = subst.RegistrationRejected
			cand.detail = fmt.Sprintf("engine refused baseline font: %v", err)
			tracer().Errorf(cand.detail)
			return cand
		}
	}
	cand.f = f
	cand.path = f.Filepath
	cand.ratio = rs.analyzer.Ratio(f, text)
	if cand.index < 0 && cand.ratio < 1.0 {
		cand.reason = subst.InsufficientCoverage
		cand.detail = fmt.Sprintf("%q covers %.0f%% of the text", cand.name, cand.ratio*100)
	}
	cand.accepted = true
	cand.baseline = true
	return cand
}
