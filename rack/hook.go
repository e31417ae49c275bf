package rack

import (
	"github.com/sparkette/dmabus/bus"
	"github.com/sparkette/dmabus/hooking"
)

// HookPosBeforeFrame marks the start of a frame. The item is the frame
// number.
var HookPosBeforeFrame = &hooking.HookPos{Name: "BeforeFrame"}

// HookPosAfterFrame marks the end of a frame. The item is the frame number.
var HookPosAfterFrame = &hooking.HookPos{Name: "AfterFrame"}

// HookPosExpanderChange marks the delivery of an ExpanderChange. The item is
// a TopologyChange.
var HookPosExpanderChange = &hooking.HookPos{Name: "ExpanderChange"}

// HookPosModulePlaced marks a module being placed in the rack. The item is
// the Module.
var HookPosModulePlaced = &hooking.HookPos{Name: "ModulePlaced"}

// HookPosModuleRemoved marks a module leaving the rack. The item is the
// Module.
var HookPosModuleRemoved = &hooking.HookPos{Name: "ModuleRemoved"}

// HookPosChannelWrite is invoked on a module for every traced channel write.
// The item is a ChannelWrite.
var HookPosChannelWrite = &hooking.HookPos{Name: "ChannelWrite"}

// TopologyChange is the item of HookPosExpanderChange.
type TopologyChange struct {
	Frame  uint64
	Module Module
	Change ExpanderChange
}

// ChannelWrite is the item of HookPosChannelWrite.
type ChannelWrite struct {
	Module  string
	Channel int
	Index   int
	Value   any
}

// A WriteHookSetter is a channel that can report writes.
type WriteHookSetter[T any] interface {
	SetWriteHook(hook bus.WriteHook[T])
}

// TraceWrites makes every write to the channel invoke HookPosChannelWrite on
// the module. Nothing is built per write while the module has no hooks.
func TraceWrites[T any](m Module, channel int, target WriteHookSetter[T]) {
	name := m.Name()

	target.SetWriteHook(func(index int, value T) {
		if m.NumHooks() == 0 {
			return
		}

		m.InvokeHook(hooking.HookCtx{
			Domain: m,
			Pos:    HookPosChannelWrite,
			Item: ChannelWrite{
				Module:  name,
				Channel: channel,
				Index:   index,
				Value:   value,
			},
		})
	})
}
