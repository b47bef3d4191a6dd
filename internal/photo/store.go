package photo

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Store holds the photos not currently displayed, pooled by orientation.
// A loaded photo lives in exactly one place at a time: one store pool or one
// displayed row, never both and never neither. Callers move photos between
// the two with Take/Select (store to row) and Add (row to store).
type Store struct {
	mu    sync.Mutex
	rng   *rand.Rand
	pools map[Orientation][]*Photo
}

// SelectRequest describes the context a replacement photo is drawn for.
type SelectRequest struct {
	// DesiredAspect is the aspect ratio of the slot being filled.
	DesiredAspect float64
	// Edge reports whether the slot touches a row boundary. Panoramas are
	// only eligible at edges; a mid-row panorama would displace its whole row.
	Edge bool
	// PanoramaProbability is the chance an edge slot draws a panorama when
	// one is pooled.
	PanoramaProbability float64
	// PanoramaColumns is the slot width a panorama would occupy if drawn.
	PanoramaColumns int
}

// Selection is a drawn photo plus its display sizing.
type Selection struct {
	Photo      *Photo
	Columns    int
	IsPanorama bool
}

// NewStore builds an empty store. A nil rng falls back to a time-seeded one.
func NewStore(rng *rand.Rand) *Store {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(time.Now().UnixNano())>>1))
	}
	return &Store{
		rng: rng,
		pools: map[Orientation][]*Photo{
			Portrait:  nil,
			Landscape: nil,
			Panorama:  nil,
		},
	}
}

// Add returns a photo to the store, clearing its display state.
func (s *Store) Add(p *Photo) {
	if p == nil {
		return
	}
	p.MarkStored()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[p.Orientation] = append(s.pools[p.Orientation], p)
}

// AddAll returns a batch of photos to the store.
func (s *Store) AddAll(photos []*Photo) {
	for _, p := range photos {
		s.Add(p)
	}
}

// Count reports the pool size for one orientation.
func (s *Store) Count(o Orientation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pools[o])
}

// Len reports the total number of pooled photos.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, pool := range s.pools {
		total += len(pool)
	}
	return total
}

// TakeRandom removes and returns a random photo of the given orientation, or
// nil when that pool is empty.
func (s *Store) TakeRandom(o Orientation) *Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeRandomLocked(o)
}

func (s *Store) takeRandomLocked(o Orientation) *Photo {
	pool := s.pools[o]
	if len(pool) == 0 {
		return nil
	}
	idx := s.rng.IntN(len(pool))
	return s.removeLocked(o, idx)
}

func (s *Store) removeLocked(o Orientation, idx int) *Photo {
	pool := s.pools[o]
	p := pool[idx]
	pool[idx] = pool[len(pool)-1]
	s.pools[o] = pool[:len(pool)-1]
	return p
}

// TakeNearestAspect removes and returns the pooled photo whose aspect ratio
// is closest to desired, searching every pool. Returns nil when empty.
func (s *Store) TakeNearestAspect(desired float64) *Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeNearestAspectLocked(desired)
}

func (s *Store) takeNearestAspectLocked(desired float64) *Photo {
	bestDelta := math.Inf(1)
	var bestOrientation Orientation
	bestIdx := -1
	for o, pool := range s.pools {
		for i, p := range pool {
			delta := math.Abs(p.AspectRatio - desired)
			if delta < bestDelta {
				bestDelta = delta
				bestOrientation = o
				bestIdx = i
			}
		}
	}
	if bestIdx < 0 {
		return nil
	}
	return s.removeLocked(bestOrientation, bestIdx)
}

// Select draws a replacement photo suited to the requested slot context.
// Edge slots roll for a pooled panorama first; otherwise the draw targets the
// orientation pool matching the desired aspect ratio and falls back to the
// aspect-nearest photo of any orientation. Returns nil when the store is
// empty, which callers treat as "no swap available" rather than an error.
func (s *Store) Select(req SelectRequest) *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Edge && len(s.pools[Panorama]) > 0 && s.rng.Float64() < req.PanoramaProbability {
		if p := s.takeRandomLocked(Panorama); p != nil {
			columns := req.PanoramaColumns
			if columns < 2 {
				columns = 2
			}
			p.Columns = columns
			return &Selection{Photo: p, Columns: columns, IsPanorama: true}
		}
	}

	want := Portrait
	columns := 1
	if req.DesiredAspect > 1 {
		want = Landscape
		columns = 2
	}
	p := s.takeRandomLocked(want)
	if p == nil {
		p = s.takeNearestAspectLocked(req.DesiredAspect)
	}
	if p == nil {
		return nil
	}
	p.Columns = columns
	return &Selection{Photo: p, Columns: columns}
}

// DrainAll empties every pool and returns the removed photos. Used when an
// album transition replaces the working set wholesale.
func (s *Store) DrainAll() []*Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*Photo
	for o, pool := range s.pools {
		all = append(all, pool...)
		s.pools[o] = nil
	}
	return all
}

// Snapshot returns the pooled photos without removing them.
func (s *Store) Snapshot() []*Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*Photo
	for _, pool := range s.pools {
		all = append(all, pool...)
	}
	return all
}
