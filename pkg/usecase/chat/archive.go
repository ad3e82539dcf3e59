package chat

import (
	"context"
	"encoding/json"
	"path"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/utils/logging"
)

// TranscriptKey is the storage key of a transcript archived on date.
func TranscriptKey(date string, id model.TranscriptID) string {
	return path.Join("transcripts", date, string(id)+".json")
}

func (a *Agent) archive(ctx context.Context, req Request, st *turnState, result *Result) {
	if a.storage == nil {
		return
	}

	transcript := &model.Transcript{
		ID:        model.NewTranscriptID(),
		Message:   req.Message,
		Response:  result.Response,
		ToolsUsed: result.ToolsUsed,
		Success:   result.Success,
		CreatedAt: a.resolver.Now(),
		Contents:  st.contents,
	}
	key := TranscriptKey(a.resolver.Today().DateString, transcript.ID)

	if err := a.saveTranscript(ctx, key, transcript); err != nil {
		logging.From(ctx).Warn("failed to archive transcript", "error", err, "key", key)
	}
}

func (a *Agent) saveTranscript(ctx context.Context, key string, transcript *model.Transcript) error {
	writer, err := a.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer")
	}

	data, err := json.Marshal(transcript)
	if err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to marshal transcript")
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write transcript to storage")
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer")
	}
	return nil
}
