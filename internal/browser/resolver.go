package browser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"oddsminer/internal/timing"
)

// Candidate is one textual matcher for a logical UI target. When Role is set
// the lookup is semantically typed (role + exact accessible name) before
// falling back to a fuzzy text-contains match.
type Candidate struct {
	Text string
	Role string
}

// Spec is an ordered list of candidates for one logical target, e.g. the
// cookie-accept button. Order encodes preference; the first visible match
// wins. Specs are immutable and defined ahead of the run.
type Spec struct {
	Label      string
	Candidates []Candidate
}

// TextSpec builds a Spec whose candidates are plain fuzzy-text matchers.
func TextSpec(label string, texts []string) Spec {
	s := Spec{Label: label, Candidates: make([]Candidate, 0, len(texts))}
	for _, t := range texts {
		s.Candidates = append(s.Candidates, Candidate{Text: t})
	}
	return s
}

// RoleSpec builds a Spec whose candidates are role-qualified matchers.
func RoleSpec(label, role string, texts []string) Spec {
	s := Spec{Label: label, Candidates: make([]Candidate, 0, len(texts))}
	for _, t := range texts {
		s.Candidates = append(s.Candidates, Candidate{Text: t, Role: role})
	}
	return s
}

// Box is an element bounding box in page coordinates.
type Box struct {
	X, Y, Width, Height float64
}

// Element is a point-in-time handle to a resolved on-page target, not a
// persistent reference.
type Element interface {
	Visible() bool
	Box() (Box, bool)
	Click() error
	ForceClick(timeout time.Duration) error
	Text() string
}

// Finder resolves matchers against the live page. Implementations return nil
// when nothing matches; lookups never surface engine errors, absence is the
// only negative outcome.
type Finder interface {
	// ByRole matches an interactive role with an exact accessible name and
	// returns the first DOM-order match.
	ByRole(role, name string) Element
	// ByText performs a fuzzy text-contains lookup and returns the first
	// DOM-order match.
	ByText(text string) Element
	// BySelector performs a raw CSS lookup.
	BySelector(css string) Element
}

// Resolver finds the first currently visible match for a Spec within a
// bounded wait, polling through the injected clock.
type Resolver struct {
	clock    timing.Clock
	log      *zap.Logger
	pollStep time.Duration
}

func NewResolver(clock timing.Clock, log *zap.Logger) *Resolver {
	return &Resolver{clock: clock, log: log, pollStep: 250 * time.Millisecond}
}

// Resolve iterates candidates in list order: a role-qualified lookup first
// when the candidate carries a role, then the fuzzy text fallback. The first
// candidate yielding a present-and-visible element wins and later candidates
// are not tried. Returns nil, never an error, when nothing becomes visible
// within timeout. Among simultaneously visible matches the first in DOM
// order is chosen.
func (r *Resolver) Resolve(ctx context.Context, f Finder, spec Spec, timeout time.Duration) Element {
	deadline := r.clock.Now().Add(timeout)

	for {
		for _, c := range spec.Candidates {
			if c.Role != "" {
				if el := f.ByRole(c.Role, c.Text); el != nil && el.Visible() {
					r.log.Debug("target resolved",
						zap.String("target", spec.Label),
						zap.String("candidate", c.Text),
						zap.String("via", "role"))
					return el
				}
			}
			if el := f.ByText(c.Text); el != nil && el.Visible() {
				r.log.Debug("target resolved",
					zap.String("target", spec.Label),
					zap.String("candidate", c.Text),
					zap.String("via", "text"))
				return el
			}
		}

		if ctx.Err() != nil || !r.clock.Now().Before(deadline) {
			r.log.Debug("target not found", zap.String("target", spec.Label))
			return nil
		}
		r.clock.Sleep(ctx, r.pollStep)
	}
}

// ResolveSelector tries raw CSS fallbacks in order and returns the first
// visible match, or nil within the same bounded-wait semantics as Resolve.
func (r *Resolver) ResolveSelector(ctx context.Context, f Finder, label string, selectors []string, timeout time.Duration) Element {
	deadline := r.clock.Now().Add(timeout)

	for {
		for _, css := range selectors {
			if el := f.BySelector(css); el != nil && el.Visible() {
				r.log.Debug("target resolved",
					zap.String("target", label),
					zap.String("candidate", css),
					zap.String("via", "css"))
				return el
			}
		}

		if ctx.Err() != nil || !r.clock.Now().Before(deadline) {
			r.log.Debug("target not found", zap.String("target", label))
			return nil
		}
		r.clock.Sleep(ctx, r.pollStep)
	}
}
