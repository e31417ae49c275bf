package bus

import "reflect"

// A Provider is anything that can be queried for typed roles, normally a
// module seen through a topology change.
type Provider interface {
	// HostRoles returns the host roles in declaration order.
	HostRoles() *Roles

	// ClientRoles returns the client roles in declaration order.
	ClientRoles() *Roles
}

// A Binder is a client role whose binding can be refreshed from a neighbor.
type Binder interface {
	Role

	Bound() bool
	Rebind(p Provider)
}

type roleEntry struct {
	elem reflect.Type
	role Role
}

// Roles is an ordered set of typed roles. Declaration order is priority
// order: when several types qualify, the first declared wins.
type Roles struct {
	entries []roleEntry
}

// NewRoles creates an empty role set.
func NewRoles() *Roles {
	return &Roles{}
}

// DeclareHost appends a Host[T] to the set.
func DeclareHost[T any](r *Roles, host Host[T]) {
	r.add(reflect.TypeFor[T](), host)
}

// DeclareClient appends a Client[T] to the set.
func DeclareClient[T any](r *Roles, client *Client[T]) {
	r.add(reflect.TypeFor[T](), client)
}

func (r *Roles) add(elem reflect.Type, role Role) {
	for _, e := range r.entries {
		if e.elem == elem {
			panic("role of type " + elem.String() + " already declared")
		}
	}

	r.entries = append(r.entries, roleEntry{elem: elem, role: role})
}

// Len returns the number of declared roles.
func (r *Roles) Len() int {
	if r == nil {
		return 0
	}

	return len(r.entries)
}

// Role returns the i-th declared role.
func (r *Roles) Role(i int) Role {
	return r.entries[i].role
}

// Type returns the value type of the i-th declared role.
func (r *Roles) Type(i int) reflect.Type {
	return r.entries[i].elem
}

// Supports reports whether a role of the given value type is declared.
func (r *Roles) Supports(elem reflect.Type) bool {
	if r == nil {
		return false
	}

	for _, e := range r.entries {
		if e.elem == elem {
			return true
		}
	}

	return false
}

// AsHost returns the Host[T] that the provider declares, if any.
func AsHost[T any](p Provider) (Host[T], bool) {
	if p == nil {
		return nil, false
	}

	hosts := p.HostRoles()
	for i := 0; i < hosts.Len(); i++ {
		if h, ok := hosts.entries[i].role.(Host[T]); ok {
			return h, true
		}
	}

	return nil, false
}

// HasClientFor reports whether the provider declares a client role for any
// of the value types in hosts.
func HasClientFor(hosts *Roles, p Provider) bool {
	if p == nil {
		return false
	}

	clients := p.ClientRoles()
	for i := 0; i < hosts.Len(); i++ {
		if clients.Supports(hosts.entries[i].elem) {
			return true
		}
	}

	return false
}

// RebindAll refreshes every Binder in the set from the provider. A nil
// provider unbinds them all.
func RebindAll(r *Roles, p Provider) {
	for i := 0; i < r.Len(); i++ {
		if b, ok := r.entries[i].role.(Binder); ok {
			b.Rebind(p)
		}
	}
}

// AggregateChannelCount returns the largest channel count over all declared
// roles. The channel index space is shared by all the typed sub-buses, so
// this is the upper bound a caller iterating slots must use.
func AggregateChannelCount(r *Roles) int {
	n := 0
	for i := 0; i < r.Len(); i++ {
		if c := r.entries[i].role.ChannelCount(); c > n {
			n = c
		}
	}

	return n
}

// SlotOwner returns the declaration index of the first role that populates
// the given channel slot, or -1 when no role does.
func SlotOwner(r *Roles, slot int) int {
	if slot < 0 {
		return -1
	}

	for i := 0; i < r.Len(); i++ {
		if slot < r.entries[i].role.ChannelCount() {
			return i
		}
	}

	return -1
}

// ResolveReadyHost scans the roles in declaration order. It returns ready as
// soon as a role has a host present that is ready. found is true when any
// role had a host present, ready or not, so callers can tell "nothing
// connected" from "connected but not ready". Roles that are not Binders are
// hosts themselves and always count as present.
func ResolveReadyHost(r *Roles) (ready, found bool) {
	for i := 0; i < r.Len(); i++ {
		role := r.entries[i].role
		if b, ok := role.(Binder); ok && !b.Bound() {
			continue
		}

		found = true

		if role.Ready() {
			return true, true
		}
	}

	return false, found
}

// Status is the readiness signal a module publishes every tick.
type Status struct {
	HostFound bool
	Ready     bool
}

// StatusOf resolves the status of a set of client roles.
func StatusOf(r *Roles) Status {
	ready, found := ResolveReadyHost(r)
	return Status{HostFound: found, Ready: ready}
}
