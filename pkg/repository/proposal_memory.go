package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
)

// ProposalMemory keeps proposals for the lifetime of the process.
type ProposalMemory struct {
	mu        sync.Mutex
	proposals map[model.ProposalID]*model.Proposal
}

var _ interfaces.ProposalStore = (*ProposalMemory)(nil)

// NewProposalMemory creates an empty in-process proposal store.
func NewProposalMemory() *ProposalMemory {
	return &ProposalMemory{
		proposals: make(map[model.ProposalID]*model.Proposal),
	}
}

func (m *ProposalMemory) PutProposal(ctx context.Context, p *model.Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *p
	m.proposals[p.ID] = &copied
	return nil
}

func (m *ProposalMemory) GetProposal(ctx context.Context, id model.ProposalID) (*model.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (m *ProposalMemory) DeleteProposal(ctx context.Context, id model.ProposalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.proposals, id)
	return nil
}
