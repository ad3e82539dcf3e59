package repository

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const proposalCollection = "proposals"

// ProposalFirestore persists proposals in Firestore so they survive restarts.
type ProposalFirestore struct {
	client *firestore.Client
}

var _ interfaces.ProposalStore = (*ProposalFirestore)(nil)

// NewProposalFirestore connects to the given Firestore database.
func NewProposalFirestore(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*ProposalFirestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID), goerr.V("database_id", databaseID))
	}
	return &ProposalFirestore{client: client}, nil
}

// Close releases the client.
func (f *ProposalFirestore) Close() error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}

func (f *ProposalFirestore) PutProposal(ctx context.Context, p *model.Proposal) error {
	doc, err := encodeProposal(p)
	if err != nil {
		return err
	}

	if _, err := f.client.Collection(proposalCollection).Doc(string(p.ID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to put proposal", goerr.V("proposal_id", p.ID))
	}
	return nil
}

func (f *ProposalFirestore) GetProposal(ctx context.Context, id model.ProposalID) (*model.Proposal, error) {
	snap, err := f.client.Collection(proposalCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get proposal", goerr.V("proposal_id", id))
	}

	var p model.Proposal
	if err := snap.DataTo(&p); err != nil {
		return nil, goerr.Wrap(err, "failed to decode proposal", goerr.V("proposal_id", id))
	}
	if err := decodeProposalBlock(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// encodeProposal stores Block as JSON text. A nil Block, as in remove_block
// proposals, is stored as an empty string.
func encodeProposal(p *model.Proposal) (*model.Proposal, error) {
	doc := *p
	doc.BlockJSON = ""
	if p.Block != nil {
		raw, err := json.Marshal(p.Block)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal proposal block", goerr.V("proposal_id", p.ID))
		}
		doc.BlockJSON = string(raw)
	}
	return &doc, nil
}

func decodeProposalBlock(p *model.Proposal) error {
	p.Block = nil
	if p.BlockJSON == "" || p.BlockJSON == "null" {
		return nil
	}

	var block model.PlanBlock
	if err := json.Unmarshal([]byte(p.BlockJSON), &block); err != nil {
		return goerr.Wrap(err, "failed to unmarshal proposal block", goerr.V("proposal_id", p.ID))
	}
	p.Block = &block
	return nil
}

func (f *ProposalFirestore) DeleteProposal(ctx context.Context, id model.ProposalID) error {
	if _, err := f.client.Collection(proposalCollection).Doc(string(id)).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete proposal", goerr.V("proposal_id", id))
	}
	return nil
}
