package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"breakdown", "phones"}, splitNames(" Breakdown, phones,,breakdown "))
	assert.Nil(t, splitNames(""))
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("12, 57")
	require.NoError(t, err)
	assert.Equal(t, []int64{12, 57}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDs("12,abc")
	assert.Error(t, err)

	_, err = parseIDs("-3")
	assert.Error(t, err)
}

func TestSelectJobs(t *testing.T) {
	assert.Equal(t, []string{"breakdown"}, selectJobs(nil, false))
	assert.Equal(t, []string{"installments"}, selectJobs([]string{"installments"}, false))

	assert.Equal(t, []string{"phones"}, selectJobs(nil, true))
	assert.Equal(t, []string{"breakdown", "phones"}, selectJobs([]string{"breakdown"}, true))
	assert.Equal(t, []string{"phones"}, selectJobs([]string{"phones"}, true))
}
