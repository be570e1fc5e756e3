package geo

import (
	"errors"
	"sort"
	"sync"
)

// ErrInvalidLocation is returned when coordinates fall outside the valid
// WGS84 ranges.
var ErrInvalidLocation = errors.New("invalid location coordinates")

type entry struct {
	lat, lon float64
	seq      uint64 // insertion order, used to break distance ties
}

// Index maintains a mutable set of (id, lat, lon) entries and answers radius
// queries. Queries recompute the exact pairwise Haversine distance against the
// full entry set; results are deterministic across runs.
type Index struct {
	mu      sync.RWMutex
	entries map[int64]entry
	nextSeq uint64
}

// NewIndex creates an empty spatial index.
func NewIndex() *Index {
	return &Index{entries: make(map[int64]entry)}
}

// Insert adds or replaces the entry for id. Replacing keeps the original
// insertion sequence so re-indexing an order does not reshuffle tie-breaks.
func (x *Index) Insert(id int64, lat, lon float64) error {
	if !ValidCoordinates(lat, lon) {
		return ErrInvalidLocation
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	seq := x.nextSeq
	if prev, ok := x.entries[id]; ok {
		seq = prev.seq
	} else {
		x.nextSeq++
	}
	x.entries[id] = entry{lat: lat, lon: lon, seq: seq}
	return nil
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
func (x *Index) Remove(id int64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, id)
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Match is a single radius-query hit: the entry id and its distance in meters
// from the query point.
type Match struct {
	ID       int64
	Distance float64
}

// QueryRadius returns every entry within radiusMeters of (lat, lon), ordered
// ascending by distance; ties are broken by insertion order. The result is a
// fresh slice computed from a consistent snapshot of the index.
func (x *Index) QueryRadius(lat, lon, radiusMeters float64) ([]Match, error) {
	if !ValidCoordinates(lat, lon) {
		return nil, ErrInvalidLocation
	}
	x.mu.RLock()
	type hit struct {
		Match
		seq uint64
	}
	hits := make([]hit, 0, len(x.entries))
	for id, e := range x.entries {
		d := HaversineMeters(lat, lon, e.lat, e.lon)
		if d <= radiusMeters {
			hits = append(hits, hit{Match: Match{ID: id, Distance: d}, seq: e.seq})
		}
	}
	x.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].seq < hits[j].seq
	})
	out := make([]Match, len(hits))
	for i, h := range hits {
		out[i] = h.Match
	}
	return out, nil
}
