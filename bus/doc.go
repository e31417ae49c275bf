// Package bus implements the expander memory bus: typed channels owned by a
// host module and borrowed by any chain of neighboring client modules.
//
// A module exposes a Host[T] for every value type T it owns memory of, and
// holds a Client[T] for every value type it wants to reach through its
// bus-ward neighbor. Roles are declared in a Roles set, in priority order, so
// that helpers such as AggregateChannelCount and ResolveReadyHost can query
// every supported type without knowing the types at compile time.
//
// Nothing in this package allocates, blocks, or returns errors on the
// per-sample path. An absent host reads as the zero value and swallows writes.
//
// Channels must not be cached across ticks. Resolve them through
// Host.Channel or Client.Channel every time; a topology change between two
// ticks may rebind the client to a different host.
package bus
