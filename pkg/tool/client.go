package tool

import (
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/usecase/calendar"
	"github.com/m-mizutani/spotter/pkg/usecase/memory"
	"github.com/m-mizutani/spotter/pkg/usecase/plan"
)

// Client contains shared resources that tools can use
type Client struct {
	Repo     interfaces.Repository
	Resolver *calendar.Resolver
	Memory   *memory.Store
	Reader   *plan.Reader
	Differ   *plan.Differ
	Planner  *plan.Planner
}

// NewClient wires the use cases around repo and a proposal store.
func NewClient(repo interfaces.Repository, proposals interfaces.ProposalStore, resolver *calendar.Resolver, mem *memory.Store, opts ...plan.PlannerOption) *Client {
	reader := plan.NewReader(repo)
	return &Client{
		Repo:     repo,
		Resolver: resolver,
		Memory:   mem,
		Reader:   reader,
		Differ:   plan.NewDiffer(reader, repo, mem, resolver),
		Planner:  plan.NewPlanner(repo, proposals, opts...),
	}
}
