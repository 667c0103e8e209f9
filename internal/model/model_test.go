package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
name: checkout-smoke
description: Exercise the checkout path end to end.
config:
  base_url: https://shop.example
steps:
  - id: login
    operation: http_post
    arguments:
      url: /login
  - id: warm_cache
    operation: cache_warm
    background: true
  - operation: smoke_pack
  - id: verify
    operation: assert_status
    needs: [warm_cache]
    arguments:
      session: ${{ steps.login.result.token }}
groups:
  smoke_pack:
    description: Shared smoke checks.
    steps:
      - id: fetch
        operation: http_get
        arguments:
          url: /health
      - id: check
        operation: assert_status
        arguments:
          value: ${{ group.fetch.result.status }}
`

func TestLoad(t *testing.T) {
	sc, err := Load([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "checkout-smoke", sc.Name)
	assert.Equal(t, "https://shop.example", sc.Config["base_url"])
	require.Len(t, sc.Steps, 4)
	assert.True(t, sc.Steps[1].Background)
	assert.Equal(t, []string{"warm_cache"}, sc.Steps[3].Needs)

	grp, ok := sc.Group("smoke_pack")
	require.True(t, ok)
	require.Len(t, grp.Steps, 2)
	assert.Equal(t, "${{ group.fetch.result.status }}", grp.Steps[1].Arguments["value"])
}

func TestEffectiveID(t *testing.T) {
	s := &Step{Operation: "http_get"}
	assert.Equal(t, "http_get", s.EffectiveID())

	s.ID = "fetch"
	assert.Equal(t, "fetch", s.EffectiveID())
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	sc := &Scenario{Steps: []*Step{
		{ID: "a", Operation: "op"},
		{ID: "a", Operation: "op"},
	}}
	err := sc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate step id")
}

func TestValidateScopesDuplicatesToTheirGroup(t *testing.T) {
	// The same id in the top-level sequence and inside a group is fine; only
	// collisions within one scope are rejected.
	sc := &Scenario{
		Steps: []*Step{{ID: "fetch", Operation: "http_get"}},
		Groups: map[string]*Group{
			"pack": {Steps: []*Step{{ID: "fetch", Operation: "http_get"}}},
		},
	}
	assert.NoError(t, sc.Validate())
}

func TestLoopValidate(t *testing.T) {
	assert.NoError(t, (*Loop)(nil).Validate())
	assert.NoError(t, (&Loop{Count: 3}).Validate())
	assert.NoError(t, (&Loop{Items: []any{"a", "b"}}).Validate())
	assert.NoError(t, (&Loop{While: "steps.poll.result.pending"}).Validate())

	assert.Error(t, (&Loop{}).Validate())
	assert.Error(t, (&Loop{Count: 2, While: "x"}).Validate())
	assert.Error(t, (&Loop{Count: -1}).Validate())
}

func TestMarshalRoundTrip(t *testing.T) {
	sc, err := Load([]byte(sampleDoc))
	require.NoError(t, err)

	data, err := sc.Marshal()
	require.NoError(t, err)

	back, err := Load(data)
	require.NoError(t, err)

	if diff := cmp.Diff(sc, back); diff != "" {
		t.Fatalf("document changed across save/load (-want +got):\n%s", diff)
	}
}
