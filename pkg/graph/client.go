package graph

import (
	"fmt"
	"time"

	"github.com/orgloom/livemap/backend/pkg/cache"
	"github.com/orgloom/livemap/backend/pkg/store"
)

// Assembler builds the living map around a focal entity: a bounded-depth,
// deduplicated node and edge set drawn from the organizational relation
// sources. One call produces one self-contained graph; nothing is persisted.
//
// An Assembler should be created using NewAssembler.
type Assembler struct {
	store store.EntityStore
	cache cache.NeighborCache

	maxAssets       int
	maxTeamMembers  int
	maxParticipants int
	maxReports      int
	parallelFetches int
	maxTries        int
	retryBackoff    time.Duration
}

// NewAssemblerParams defines the configuration parameters for creating a new
// Assembler.
//
// Store and Cache are required. The Max* limits cap relation fan-out so one
// assembly stays constant-size relative to the tenant; zero values pick the
// defaults (50 knowledge assets, 30 team members, 30 project participants,
// 20 direct reports). ParallelFetches bounds concurrent repository reads per
// stage. MaxTries is the total attempt count per repository read and
// RetryBackoff the pause before a retry.
type NewAssemblerParams struct {
	Store store.EntityStore
	Cache cache.NeighborCache

	MaxKnowledgeAssets     int
	MaxTeamMembers         int
	MaxProjectParticipants int
	MaxDirectReports       int
	ParallelFetches        int
	MaxTries               int
	RetryBackoff           time.Duration
}

// NewAssembler creates and returns a new Assembler configured with the
// provided parameters.
func NewAssembler(params NewAssemblerParams) (*Assembler, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	a := &Assembler{
		store:           params.Store,
		cache:           params.Cache,
		maxAssets:       params.MaxKnowledgeAssets,
		maxTeamMembers:  params.MaxTeamMembers,
		maxParticipants: params.MaxProjectParticipants,
		maxReports:      params.MaxDirectReports,
		parallelFetches: params.ParallelFetches,
		maxTries:        params.MaxTries,
		retryBackoff:    params.RetryBackoff,
	}
	if a.maxAssets <= 0 {
		a.maxAssets = 50
	}
	if a.maxTeamMembers <= 0 {
		a.maxTeamMembers = 30
	}
	if a.maxParticipants <= 0 {
		a.maxParticipants = 30
	}
	if a.maxReports <= 0 {
		a.maxReports = 20
	}
	if a.parallelFetches <= 0 {
		a.parallelFetches = 4
	}
	if a.maxTries <= 0 {
		a.maxTries = 2
	}
	if a.retryBackoff <= 0 {
		a.retryBackoff = 150 * time.Millisecond
	}

	return a, nil
}
