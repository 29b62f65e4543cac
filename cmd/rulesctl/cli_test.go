package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // a Wednesday

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd(func() time.Time { return fixedNow })
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestPayout(t *testing.T) {
	stdout, _, err := executeCLI(t, "payout", "--plan", "premium", "--months", "3", "--signups", "5")
	require.NoError(t, err)
	assert.Equal(t, "$38 (standard tier)\n", stdout)

	stdout, _, err = executeCLI(t, "payout", "--plan", " Elite ", "--months", "12", "--renewal", "--signups", "10", "--json")
	require.NoError(t, err)
	var result payoutResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, int64(110), result.Amount)
	assert.Equal(t, "bonus", result.Tier)
	assert.True(t, result.Matched)

	stdout, _, err = executeCLI(t, "payout", "--plan", "Premium", "--months", "9")
	require.NoError(t, err)
	assert.Contains(t, stdout, "payout $0")

	_, _, err = executeCLI(t, "payout", "--months", "3")
	assert.Error(t, err)
}

func TestPayoutFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	yml := `commission:
  plans:
    - name: Starter
      options:
        - { lengthMonths: 1, cost: 100, payoutStandard: 10, payoutBonus: 14, renewalPayoutStandard: 5, renewalPayoutBonus: 7 }
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commission.yml"), []byte(yml), 0o600))

	stdout, _, err := executeCLI(t, "payout", "--plan", "starter", "--months", "1", "--signups", "7", "--config-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "$14 (bonus tier)\n", stdout)
}

func TestPeriod(t *testing.T) {
	stdout, _, err := executeCLI(t, "period")
	require.NoError(t, err)
	assert.Equal(t, "period 2024-05-12 to 2024-05-18, paid 2024-05-24\n", stdout)

	stdout, _, err = executeCLI(t, "period", "--at", "2024-05-18", "--json")
	require.NoError(t, err)
	var result periodResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, periodResult{Start: "2024-05-12", End: "2024-05-18", PayDate: "2024-05-24"}, result)

	_, _, err = executeCLI(t, "period", "--at", "yesterday")
	assert.Error(t, err)
}

func TestLeadAge(t *testing.T) {
	stdout, _, err := executeCLI(t, "lead-age", "--created", "2024-05-08T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "7 days since update: nudge\n", stdout)

	stdout, _, err = executeCLI(t, "lead-age", "--created", "2024-04-01T00:00:00Z", "--updated", "2024-05-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, "14 days since update: stale\n", stdout)

	stdout, _, err = executeCLI(t, "lead-age", "--created", "2024-05-20T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "0 days since update: fresh"))
	assert.Contains(t, stdout, "future")
}

func TestFeaturesAndAccess(t *testing.T) {
	stdout, _, err := executeCLI(t, "features", "premium")
	require.NoError(t, err)
	assert.Contains(t, stdout, "menu")
	assert.NotContains(t, stdout, "advanced_analytics")

	_, _, err = executeCLI(t, "features", "gold")
	assert.Error(t, err)

	stdout, _, err = executeCLI(t, "access", "--tier", "elite", "--feature", "advanced_analytics")
	require.NoError(t, err)
	assert.Equal(t, "allowed\n", stdout)

	stdout, _, err = executeCLI(t, "access", "--tier", "", "--required", "premium")
	require.NoError(t, err)
	assert.Equal(t, "denied\n", stdout)

	stdout, _, err = executeCLI(t, "access", "--tier", "mystery", "--feature", "hours")
	require.NoError(t, err)
	assert.Equal(t, "allowed\n", stdout, "unknown tiers keep basic features")
}
