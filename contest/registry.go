package contest

import (
	"fmt"

	"github.com/Dosada05/run-contest/models"
)

// Registry is an append-only, owner-controlled directory of contests. The
// most recently added contest is the current one.
type Registry struct {
	state *models.Registry
	known map[models.Address]struct{}
}

func NewRegistry(address, owner models.Address) (*Registry, error) {
	if !address.Valid() || !owner.Valid() {
		return nil, fmt.Errorf("%w: address and owner are required", ErrInvalidParams)
	}
	return LoadRegistry(&models.Registry{Address: address, Owner: owner}), nil
}

// LoadRegistry rehydrates a registry whose Contests are in insertion order.
func LoadRegistry(state *models.Registry) *Registry {
	r := &Registry{
		state: state,
		known: make(map[models.Address]struct{}, len(state.Contests)),
	}
	for _, a := range state.Contests {
		r.known[a] = struct{}{}
	}
	return r
}

func (r *Registry) Address() models.Address { return r.state.Address }
func (r *Registry) Owner() models.Address   { return r.state.Owner }
func (r *Registry) NumContests() int        { return len(r.state.Contests) }

// AddContest appends handle. Only the owner may add, and a handle can be
// added once.
func (r *Registry) AddContest(caller, handle models.Address) error {
	if caller != r.state.Owner {
		return ErrUnauthorized
	}
	if !handle.Valid() {
		return fmt.Errorf("%w: contest handle is required", ErrInvalidParams)
	}
	if _, ok := r.known[handle]; ok {
		return ErrDuplicateContest
	}
	r.state.Contests = append(r.state.Contests, handle)
	r.known[handle] = struct{}{}
	return nil
}

func (r *Registry) CurrentContest() (models.Address, error) {
	n := len(r.state.Contests)
	if n == 0 {
		return "", ErrEmptyRegistry
	}
	return r.state.Contests[n-1], nil
}

func (r *Registry) Contests() []models.Address {
	out := make([]models.Address, len(r.state.Contests))
	copy(out, r.state.Contests)
	return out
}

func (r *Registry) View() models.RegistryView {
	v := models.RegistryView{
		Address:     r.state.Address,
		Owner:       r.state.Owner,
		NumContests: len(r.state.Contests),
	}
	if cur, err := r.CurrentContest(); err == nil {
		v.CurrentContest = &cur
	}
	return v
}
