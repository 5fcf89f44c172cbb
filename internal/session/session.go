// Package session holds per-client UI state: filter criteria, the selected
// location and the simulated startup delay.
package session

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/dataset"
	"github.com/sells-group/sponge-spot/internal/filter"
	"github.com/sells-group/sponge-spot/internal/model"
)

// Options controls the startup delay simulation.
type Options struct {
	// DelayMin and DelayMax bound the uniformly drawn startup delay.
	DelayMin time.Duration
	DelayMax time.Duration

	// PickMin and PickMax bound the dataset index range the post-load
	// selection is drawn from. Both ends are inclusive.
	PickMin int
	PickMax int

	// Criteria seeds new sessions; nil means model.DefaultCriteria.
	Criteria *model.Criteria

	// Rand overrides the random source. Access is serialized by the session.
	Rand *rand.Rand
}

// DefaultOptions draws a 4-7s delay, then a random site
// from index 1 through 15.
func DefaultOptions() Options {
	return Options{
		DelayMin: 4000 * time.Millisecond,
		DelayMax: 7000 * time.Millisecond,
		PickMin:  1,
		PickMax:  15,
	}
}

// State is a point-in-time copy of a session.
type State struct {
	ID        string         `json:"id"`
	Loading   bool           `json:"loading"`
	Criteria  model.Criteria `json:"criteria"`
	Selected  model.Location `json:"selected"`
	CreatedAt time.Time      `json:"created_at"`
}

// Session is one client's filter and selection state. All methods are safe
// for concurrent use; edits are serialized so each one runs to completion
// before the next.
type Session struct {
	id   string
	data *dataset.Dataset
	opts Options

	mu        sync.Mutex
	rng       *rand.Rand
	criteria  model.Criteria
	selected  model.Location
	loading   bool
	started   bool
	closed    bool
	timer     *time.Timer
	ready     chan struct{}
	createdAt time.Time
	lastSeen  time.Time
}

// New creates a session showing the dataset's first location. The startup
// timer is not armed until Start is called.
func New(id string, data *dataset.Dataset, opts Options) *Session {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}
	criteria := model.DefaultCriteria()
	if opts.Criteria != nil {
		criteria = opts.Criteria.Clone()
	}
	now := time.Now()
	return &Session{
		id:        id,
		data:      data,
		opts:      opts,
		rng:       rng,
		criteria:  criteria,
		selected:  data.First(),
		loading:   true,
		ready:     make(chan struct{}),
		createdAt: now,
		lastSeen:  now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start arms the one-shot startup timer and returns the drawn delay.
// Calling Start again, or after Close, does nothing and returns zero.
func (s *Session) Start() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.closed {
		return 0
	}
	s.started = true

	delay := s.opts.DelayMin
	if span := s.opts.DelayMax - s.opts.DelayMin; span > 0 {
		delay += time.Duration(s.rng.Int64N(int64(span) + 1))
	}
	s.timer = time.AfterFunc(delay, s.finishLoading)

	zap.L().Debug("session: startup timer armed",
		zap.String("session", s.id),
		zap.Duration("delay", delay),
	)
	return delay
}

// finishLoading runs on the timer goroutine. It may race with Close; the
// closed flag decides the winner.
func (s *Session) finishLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.loading {
		return
	}
	s.loading = false
	loc := s.selectRandomLocked(s.opts.PickMin, s.opts.PickMax)
	close(s.ready)

	zap.L().Info("session: loading complete",
		zap.String("session", s.id),
		zap.Int("selected", loc.ID),
	)
}

// Close tears the session down and cancels a pending startup timer. It
// reports whether a pending timer was cancelled.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true

	stopped := false
	if s.timer != nil {
		stopped = s.timer.Stop()
	}
	return stopped && s.loading
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Ready is closed once the simulated load completes. It never closes for a
// session torn down before its timer fired.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Loading reports whether the simulated load is still pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Criteria returns a copy of the current filter criteria.
func (s *Session) Criteria() model.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria.Clone()
}

// SetCriteria replaces the filter criteria.
func (s *Session) SetCriteria(c model.Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = c.Clone()
	s.lastSeen = time.Now()
}

// UpdateCriteria applies fn to the criteria atomically and returns the result.
func (s *Session) UpdateCriteria(fn func(*model.Criteria)) model.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.criteria)
	s.lastSeen = time.Now()
	return s.criteria.Clone()
}

// Visible runs the filter engine over the dataset with the current criteria.
func (s *Session) Visible() []model.Location {
	c := s.Criteria()
	return filter.Apply(s.data.All(), c)
}

// Selected returns the active location.
func (s *Session) Selected() model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.Clone()
}

// Select makes the location with the given id active. Unknown ids leave the
// selection unchanged and return false.
func (s *Session) Select(id int) (model.Location, bool) {
	loc, ok := s.data.ByID(id)
	if !ok {
		return model.Location{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = loc
	s.lastSeen = time.Now()
	return loc.Clone(), true
}

// SelectRandom selects a location drawn uniformly from dataset indices
// [lo, hi], clamped to the dataset.
func (s *Session) SelectRandom(lo, hi int) model.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectRandomLocked(lo, hi)
}

func (s *Session) selectRandomLocked(lo, hi int) model.Location {
	last := s.data.Len() - 1
	lo = max(lo, 0)
	hi = min(hi, last)
	if lo > hi {
		lo = hi
	}
	idx := lo + s.rng.IntN(hi-lo+1)

	loc, _ := s.data.At(idx)
	s.selected = loc
	return loc.Clone()
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:        s.id,
		Loading:   s.loading,
		Criteria:  s.criteria.Clone(),
		Selected:  s.selected.Clone(),
		CreatedAt: s.createdAt,
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
