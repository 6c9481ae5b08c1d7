package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{
		"scrape", "scrape-loop",
		"ingest-sources", "ingest-sources-loop",
		"extract", "extract-loop",
		"judge", "judge-loop",
		"pipeline", "pipeline-loop",
		"cleanup", "cleanup-loop",
		"migrate", "seed", "token",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestLoopIntervalDefaults(t *testing.T) {
	root := newRootCmd()
	expected := map[string]string{
		"scrape-loop":         "3600",
		"ingest-sources-loop": "1800",
		"extract-loop":        "600",
		"judge-loop":          "900",
		"pipeline-loop":       "3600",
		"cleanup-loop":        "21600",
	}
	for name, interval := range expected {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		flag := cmd.Flags().Lookup("interval")
		require.NotNil(t, flag, name)
		assert.Equal(t, interval, flag.DefValue, name)
	}
}

func TestStageFlags(t *testing.T) {
	root := newRootCmd()

	scrape, _, err := root.Find([]string{"scrape"})
	require.NoError(t, err)
	assert.Equal(t, "10", scrape.Flags().Lookup("max-items").DefValue)
	assert.NotNil(t, scrape.Flags().Lookup("project-id"))

	ingest, _, err := root.Find([]string{"ingest-sources"})
	require.NoError(t, err)
	assert.Equal(t, "20", ingest.Flags().Lookup("limit").DefValue)
	assert.Equal(t, "false", ingest.Flags().Lookup("no-fetch").DefValue)

	judge, _, err := root.Find([]string{"judge"})
	require.NoError(t, err)
	assert.Equal(t, "50", judge.Flags().Lookup("limit").DefValue)

	cleanup, _, err := root.Find([]string{"cleanup"})
	require.NoError(t, err)
	assert.Equal(t, "48", cleanup.Flags().Lookup("hours").DefValue)
	assert.NotNil(t, cleanup.Flags().Lookup("keep-unusable"))

	token, _, err := root.Find([]string{"token"})
	require.NoError(t, err)
	assert.Equal(t, "720h0m0s", token.Flags().Lookup("ttl").DefValue)
}

func TestParseProjectID(t *testing.T) {
	id, err := parseProjectID("")
	require.NoError(t, err)
	assert.Nil(t, id)

	want := uuid.New()
	id, err = parseProjectID(want.String())
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, want, *id)

	_, err = parseProjectID("not-a-uuid")
	assert.Error(t, err)
}
