package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceGroupID(t *testing.T) {
	id, err := NewResourceGroupID("global", "adhoc", "alice")
	require.NoError(t, err)
	assert.Equal(t, "global.adhoc.alice", id.String())
	assert.Equal(t, []string{"global", "adhoc", "alice"}, id.Segments())

	_, err = NewResourceGroupID()
	assert.Error(t, err)

	_, err = NewResourceGroupID("global", "")
	assert.Error(t, err)
}

func TestResourceGroupIDJSON(t *testing.T) {
	id, err := NewResourceGroupID("global", "etl")
	require.NoError(t, err)

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.JSONEq(t, `["global","etl"]`, string(data))

	var decoded ResourceGroupID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "global.etl", decoded.String())

	assert.Error(t, json.Unmarshal([]byte(`[]`), &decoded))
}

func TestSessionContextOptionalAccessors(t *testing.T) {
	empty := SessionContext{User: "alice"}
	assert.Equal(t, "", empty.SourceOrEmpty())
	assert.Equal(t, "", empty.QueryTypeOrEmpty())
	assert.Equal(t, "", empty.ClientInfoOrEmpty())
	assert.Equal(t, "", empty.ResourceGroupOrEmpty())

	rg, err := NewResourceGroupID("global", "adhoc")
	require.NoError(t, err)

	full := SessionContext{
		User:          "alice",
		Source:        StringPtr("jdbc#web"),
		QueryType:     StringPtr("SELECT"),
		ClientInfo:    StringPtr("cli"),
		ResourceGroup: rg,
	}
	assert.Equal(t, "jdbc#web", full.SourceOrEmpty())
	assert.Equal(t, "SELECT", full.QueryTypeOrEmpty())
	assert.Equal(t, "cli", full.ClientInfoOrEmpty())
	assert.Equal(t, "global.adhoc", full.ResourceGroupOrEmpty())
}
