package memory

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/spotter/pkg/interfaces"
	"github.com/m-mizutani/spotter/pkg/model"
	"github.com/m-mizutani/spotter/pkg/utils/text"
)

// KeywordSearcher matches episodes containing any query token. Matching
// and the result limit are pushed down to the repository.
type KeywordSearcher struct {
	repo interfaces.MemoryRepository
}

// NewKeywordSearcher creates a KeywordSearcher.
func NewKeywordSearcher(repo interfaces.MemoryRepository) *KeywordSearcher {
	return &KeywordSearcher{repo: repo}
}

// Search implements Searcher.
func (k *KeywordSearcher) Search(ctx context.Context, query string, maxItems int) ([]*model.Episode, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 || maxItems <= 0 {
		return nil, nil
	}

	episodes, err := k.repo.SearchEpisodes(ctx, tokens, maxItems)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search episodes")
	}

	hits := make([]*model.Episode, 0, len(episodes))
	for _, ep := range episodes {
		hit := *ep
		hit.Text = text.Truncate(ep.Text, maxEpisodeRunes)
		hits = append(hits, &hit)
	}
	return hits, nil
}

// Tokenize lowercases s and splits it on anything but letters and digits,
// dropping tokens shorter than two characters and duplicates.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var tokens []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}
