package treatment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealedChain(t *testing.T, n int) []*Entry {
	t.Helper()
	prev := ""
	out := make([]*Entry, 0, n)
	for i := 0; i < n; i++ {
		e := NewEntry("org", "R-1", "alert", ActionApply, Values{2, 3}, Values{3, 3}, "note", "alice")
		require.NoError(t, e.Seal(prev))
		prev = e.EntryHash
		out = append(out, e)
	}
	return out
}

func TestEntry_Seal(t *testing.T) {
	e := NewEntry("org", "R-1", "a1", ActionAccept, Values{2, 2}, Values{2, 2}, "", "system")
	require.NoError(t, e.Seal(""))

	assert.Equal(t, GenesisHash, e.PrevHash)
	assert.Len(t, e.EntryHash, 64)

	again, err := e.ComputeHash(GenesisHash)
	require.NoError(t, err)
	assert.Equal(t, e.EntryHash, again)
}

func TestEntry_HashIgnoresArchive(t *testing.T) {
	e := NewEntry("org", "R-1", "a1", ActionReject, Values{2, 2}, Values{2, 2}, "noise", "bob")
	require.NoError(t, e.Seal(""))
	before := e.EntryHash

	now := time.Now()
	e.DeletedAt = &now
	after, err := e.ComputeHash(e.PrevHash)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestVerifyChain(t *testing.T) {
	chain := sealedChain(t, 4)
	rep := VerifyChain("org", "R-1", chain)
	assert.True(t, rep.Valid)
	assert.Equal(t, 4, rep.Entries)

	chain[2].NewLikelihood = 5
	rep = VerifyChain("org", "R-1", chain)
	assert.False(t, rep.Valid)
	assert.Equal(t, chain[2].ID, rep.BrokenAt)

	chain = sealedChain(t, 3)
	chain = append(chain[:1], chain[2:]...)
	rep = VerifyChain("org", "R-1", chain)
	assert.False(t, rep.Valid)
	assert.Contains(t, rep.Reason, "prev_hash")
}

func TestVerifyChain_Empty(t *testing.T) {
	assert.True(t, VerifyChain("org", "R-1", nil).Valid)
}

//Personal.AI order the ending
