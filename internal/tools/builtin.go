package tools

import (
	"github.com/boxcoder/boxcoder/internal/memory"
	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// NewDefaultRegistry registers every tool against sb and store.
func NewDefaultRegistry(sb *sandbox.Sandbox, store *memory.Store) *Registry {
	r := NewRegistry()
	r.Register(NewListFilesTool(sb))
	r.Register(NewReadTool(sb))
	r.Register(NewWriteTool(sb))
	r.Register(NewRunPythonTool(sb))
	r.Register(NewDeleteTool(sb))
	r.Register(NewSearchMemoryTool(store))
	return r
}
