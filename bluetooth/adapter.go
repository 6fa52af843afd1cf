package bluetooth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campfirenet/meshsim/async"
)

// An Adapter finds the neighbors of a device.
type Adapter interface {
	// ID returns the identity the adapter advertises.
	ID() AdapterID

	// Discover waits until the radio may scan and returns the neighbors that
	// are visible. It only fails when the context ends.
	Discover(ctx context.Context) ([]Neighbor, error)
}

// Visibility tells how well two adapters see each other. A value of 1 means
// fully visible.
type Visibility interface {
	Connectedness(a, b AdapterID) float64
}

// A SimulatedAdapter is an Adapter whose scans are paced by simulated time.
type SimulatedAdapter struct {
	id         AdapterID
	config     Config
	visibility Visibility
	tokens     *async.Semaphore

	lock      sync.Mutex
	elapsed   time.Duration
	neighbors map[AdapterID]*SimulatedNeighbor
}

// NewSimulatedAdapter creates an adapter with no discovery tokens. It panics
// if the config is not valid.
func NewSimulatedAdapter(
	id AdapterID,
	config Config,
	visibility Visibility,
) *SimulatedAdapter {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	return &SimulatedAdapter{
		id:         id,
		config:     config,
		visibility: visibility,
		tokens:     async.NewSemaphore(0),
		neighbors:  make(map[AdapterID]*SimulatedNeighbor),
	}
}

// ID returns the adapter ID.
func (a *SimulatedAdapter) ID() AdapterID {
	return a.id
}

// AddNeighbor registers the neighbor reachable through link.
func (a *SimulatedAdapter) AddNeighbor(link *ConnectionContext) {
	n := NewSimulatedNeighbor(a.id, link)

	a.lock.Lock()
	defer a.lock.Unlock()

	a.neighbors[n.ID()] = n
}

// Neighbor returns the neighbor with the given ID.
func (a *SimulatedAdapter) Neighbor(id AdapterID) (*SimulatedNeighbor, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()

	n, ok := a.neighbors[id]

	return n, ok
}

// Neighbors returns all registered neighbors ordered by ID.
func (a *SimulatedAdapter) Neighbors() []*SimulatedNeighbor {
	a.lock.Lock()
	defer a.lock.Unlock()

	list := make([]*SimulatedNeighbor, 0, len(a.neighbors))
	for _, n := range a.neighbors {
		list = append(list, n)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].ID() < list[j].ID()
	})

	return list
}

// Tokens returns the number of discovery tokens banked.
func (a *SimulatedAdapter) Tokens() int {
	return a.tokens.Count()
}

// Permit lets dt of simulated time pass. A discovery token is granted for
// every full token interval, as long as the bank is not full.
func (a *SimulatedAdapter) Permit(dt time.Duration) {
	a.lock.Lock()
	defer a.lock.Unlock()

	a.elapsed += dt
	for a.elapsed >= a.config.DiscoveryTokenInterval {
		a.elapsed -= a.config.DiscoveryTokenInterval

		if a.tokens.Count() < a.config.MaxDiscoveryTokens {
			a.tokens.Release()
		}
	}
}

// Discover waits for a discovery token and returns the neighbors that are
// fully visible.
func (a *SimulatedAdapter) Discover(ctx context.Context) ([]Neighbor, error) {
	if err := a.tokens.Wait(ctx); err != nil {
		return nil, err
	}

	var found []Neighbor
	for _, n := range a.Neighbors() {
		if a.visibility.Connectedness(a.id, n.ID()) >= 1 {
			found = append(found, n)
		}
	}

	return found, nil
}
