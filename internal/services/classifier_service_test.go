// internal/services/classifier_service_test.go
package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artdrm/artdrm-backend/internal/config"
)

func TestClassifyStopsAtFirstVerdict(t *testing.T) {
	first := &stubClassifier{name: "gemini", label: LabelAI}
	second := &stubClassifier{name: "openai", label: LabelReal}
	chain := NewClassifierChainFrom(first, second)

	label, provider, err := chain.Classify(context.Background(), []byte("img"))

	require.NoError(t, err)
	assert.Equal(t, LabelAI, label)
	assert.Equal(t, "gemini", provider)
	assert.Zero(t, second.calls)
}

func TestClassifySkipsFailedProviders(t *testing.T) {
	first := &stubClassifier{name: "gemini", err: fmt.Errorf("quota exhausted")}
	second := &stubClassifier{name: "groq", label: LabelReal}
	chain := NewClassifierChainFrom(first, second)

	label, provider, err := chain.Classify(context.Background(), []byte("img"))

	require.NoError(t, err)
	assert.Equal(t, LabelReal, label)
	assert.Equal(t, "groq", provider)
	assert.Equal(t, 1, first.calls)
}

func TestClassifyAllProvidersFail(t *testing.T) {
	first := &stubClassifier{name: "gemini", err: fmt.Errorf("quota exhausted")}
	second := &stubClassifier{name: "groq", err: fmt.Errorf("model offline")}
	chain := NewClassifierChainFrom(first, second)

	_, _, err := chain.Classify(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
}

func TestClassifierChainDisabled(t *testing.T) {
	chain := NewClassifierChain(config.ClassifierConfig{
		Enabled:      false,
		GeminiAPIKey: "key",
	})

	assert.True(t, chain.Empty())

	_, _, err := chain.Classify(context.Background(), []byte("img"))
	require.Error(t, err)
}

func TestClassifierChainBuildsFromConfig(t *testing.T) {
	chain := NewClassifierChain(config.ClassifierConfig{
		Enabled:      true,
		GeminiAPIKey: "a",
		GroqAPIKey:   "b",
	})

	assert.False(t, chain.Empty())
	assert.Len(t, chain.classifiers, 2)
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"ai":                      LabelAI,
		"AI":                      LabelAI,
		" ai.\n":                  LabelAI,
		"This looks ai-generated": LabelAI,
		"real":                    LabelReal,
		"REAL":                    LabelReal,
		"a real photograph":       LabelReal,
		"unsure":                  LabelReal,
	}

	for input, want := range cases {
		assert.Equal(t, want, normalizeLabel(input), "input %q", input)
	}
}
