// Package table keeps the current locator for each subject a node has heard
// about.
//
// The table lives in memory only. It is bounded by an adaptive replacement
// cache: when full, the least valuable subjects are forgotten and will be
// re-learned from the next locator offered for them.
package table

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hashicorp/golang-lru/arc/v2"
	"go.uber.org/zap"

	"xdao.co/locator/address"
	"xdao.co/locator/locator"
)

var ErrUnknownSigner = errors.New("table: unknown signer")

// IdentityLookup resolves the identity behind a signer address.
type IdentityLookup func(signer address.Address) (locator.Identity, bool)

// Outcome is the result of offering a locator to the table.
type Outcome int

const (
	// OutcomeAccepted means the locator is now current for its subject.
	OutcomeAccepted Outcome = iota
	// OutcomeStale means the held locator takes precedence.
	OutcomeStale
	// OutcomeDuplicate means the identical locator is already held.
	OutcomeDuplicate
	// OutcomeRejected means the signature did not verify.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeStale:
		return "stale"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeRejected:
		return "rejected"
	}
	return fmt.Sprintf("UNKNOWN (%d)", int(o))
}

// Table maps subjects to their current locator. It is safe for concurrent use.
type Table struct {
	mu     sync.Mutex
	cache  *arc.ARCCache[address.Address, *locator.Locator]
	lookup IdentityLookup
	logger *zap.Logger
}

type Option func(*Table)

// WithLogger sets the logger decisions are reported to at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.logger = l
		}
	}
}

// New returns a table holding at most size subjects.
func New(size int, lookup IdentityLookup, opts ...Option) (*Table, error) {
	if lookup == nil {
		return nil, errors.New("table: identity lookup is required")
	}
	cache, err := arc.NewARC[address.Address, *locator.Locator](size)
	if err != nil {
		return nil, fmt.Errorf("table: creating cache: %w", err)
	}
	t := &Table{cache: cache, lookup: lookup, logger: zap.NewNop()}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Offer verifies loc against its signer and makes it current for its subject
// if it supersedes the locator already held.
func (t *Table) Offer(loc *locator.Locator) (Outcome, error) {
	log := t.logger.With(
		zap.Stringer("subject", loc.Subject()),
		zap.Stringer("signer", loc.Signer()),
		zap.Int64("timestamp", loc.Timestamp()),
	)

	signer, ok := t.lookup(loc.Signer())
	if !ok {
		log.Debug("Locator signer unknown")
		return OutcomeRejected, fmt.Errorf("%w: %s", ErrUnknownSigner, loc.Signer())
	}
	if !loc.Verify(signer) {
		log.Debug("Locator signature invalid")
		return OutcomeRejected, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	held, ok := t.cache.Peek(loc.Subject())
	switch {
	case !ok:
	case held.Hash64() == loc.Hash64() && held.Equal(loc):
		log.Debug("Locator already held")
		return OutcomeDuplicate, nil
	case !loc.ShouldReplace(held):
		log.Debug("Locator superseded by held locator",
			zap.Int64("held_timestamp", held.Timestamp()),
			zap.Bool("held_proxy_signed", held.IsProxySigned()))
		return OutcomeStale, nil
	}
	t.cache.Add(loc.Subject(), loc)
	log.Debug("Locator accepted", zap.Int("endpoints", len(loc.Endpoints())))
	return OutcomeAccepted, nil
}

// Get returns the current locator for subject.
func (t *Table) Get(subject address.Address) (*locator.Locator, bool) {
	return t.cache.Get(subject)
}

// Remove forgets subject.
func (t *Table) Remove(subject address.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(subject)
}

// Len returns the number of subjects held.
func (t *Table) Len() int { return t.cache.Len() }

// Subjects returns the subjects held, sorted.
func (t *Table) Subjects() []address.Address {
	keys := t.cache.Keys()
	slices.Sort(keys)
	return keys
}
