package repo

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcm15289/TrendAnalyzer-sub000/internal/models"
)

func TestKeywordsRepoReadsSets(t *testing.T) {
	stub := newStubCache()
	stub.store[KeywordsKey] = []byte(`{"keywordSets":[["Sliwa"," Adams "],["adams","Sliwa"],[" "],["Mamdani"]],"keywords":["Adams"]}`)

	sets, err := NewKeywordsRepo(stub).KeywordSets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.KeywordSet{{"Sliwa", "Adams"}, {"adams", "Sliwa"}, {"Mamdani"}}, sets)
}

func TestKeywordsRepoMissingDocument(t *testing.T) {
	_, err := NewKeywordsRepo(newStubCache()).KeywordSets(context.Background())
	assert.True(t, IsMissing(err))
}

func TestKeywordsRepoSave(t *testing.T) {
	stub := newStubCache()
	repo := NewKeywordsRepo(stub)
	ctx := context.Background()

	require.NoError(t, repo.SaveKeywordSets(ctx, []models.KeywordSet{{"Sliwa", "Adams"}, {"Adams", "Sliwa"}, {"Mamdani"}}, "seed"))

	var doc keywordsDocument
	require.NoError(t, json.Unmarshal(stub.store[KeywordsKey], &doc))
	assert.Equal(t, [][]string{{"Sliwa", "Adams"}, {"Mamdani"}}, doc.KeywordSets)
	assert.Equal(t, []string{"Adams", "Mamdani", "Sliwa"}, doc.Keywords)
	assert.Equal(t, "seed", doc.Source)

	sets, err := repo.KeywordSets(ctx)
	require.NoError(t, err)
	assert.Len(t, sets, 2)
}
