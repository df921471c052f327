package system

import (
	"github.com/dicebrawl/server/internal/core/ecs"
	coresys "github.com/dicebrawl/server/internal/core/system"
)

// CleanupSystem maintains the entity store at iteration end, applying
// deferred destruction. Phase 4 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
}

func NewCleanupSystem(world *ecs.World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update() error {
	s.world.Maintain()
	return nil
}
