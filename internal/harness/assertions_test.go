package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseScenario(assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "assertions",
		Description: "one period with two events",
		Accounts:    map[string]uint64{"alice": 2_000_000},
		Steps: []Step{
			{Op: OpInitialize, Signer: "alice", Period: 5},
			{Op: OpAppend, Signer: "alice", Period: 5, Payload: "a"},
			{Op: OpAppend, Signer: "bob", Period: 5, Payload: "b"},
			{Op: OpAppend, Signer: "bob", Period: 6, Payload: "c", Expect: &Expect{Error: "NOT_INITIALIZED"}},
		},
		Assertions: assertions,
	}
}

func TestAssertions_Pass(t *testing.T) {
	result, err := Run(baseScenario(
		Assertion{Type: AssertEventCount, Period: 5, Count: 2},
		Assertion{Type: AssertEventCount, Period: 6, Count: 0},
		Assertion{Type: AssertBalance, Account: "alice", Lamports: 2_000_000 - 1_064_880},
		Assertion{Type: AssertBalance, Account: "bob", Lamports: 0},
		Assertion{Type: AssertReceiptCount, Count: 4},
		Assertion{Type: AssertReceiptCount, Status: StatusOK, Count: 3},
		Assertion{Type: AssertReceiptCount, Status: StatusFailed, Count: 1},
		Assertion{Type: AssertAuditClean},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertions_EventCountFails(t *testing.T) {
	result, err := Run(baseScenario(Assertion{Type: AssertEventCount, Period: 5, Count: 3}))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: event_count")
	assert.Contains(t, result.Errors[0], "Expected: 3 events in period 5")
	assert.Contains(t, result.Errors[0], "Actual: 2 events")
	assert.Contains(t, result.Errors[0], "Full trace:")
	assert.Contains(t, result.Errors[0], "[3] append period=6 failed NOT_INITIALIZED")
}

func TestAssertions_BalanceFails(t *testing.T) {
	result, err := Run(baseScenario(Assertion{Type: AssertBalance, Account: "alice", Lamports: 2_000_000}))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "alice holds 2000000 lamports")
	assert.Contains(t, result.Errors[0], "Actual: 935120 lamports")
}

func TestAssertions_ReceiptCountFails(t *testing.T) {
	result, err := Run(baseScenario(Assertion{Type: AssertReceiptCount, Status: StatusFailed, Count: 0}))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "Expected: 0 failed receipts")
	assert.Contains(t, result.Errors[0], "Actual: 1 failed receipts")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertBalance,
		Expected: "x",
		Actual:   "y",
		Trace: []TraceEntry{
			{Step: 0, Op: OpInitialize, Period: 1, Status: StatusOK},
			{Step: 1, Op: OpRead, Period: 2, Status: StatusRead, Error: "NOT_FOUND"},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: balance\n")
	assert.Contains(t, msg, "  [0] initialize period=1 ok\n")
	assert.Contains(t, msg, "  [1] read period=2 read NOT_FOUND\n")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	// Bypasses validation, which would reject the type at load time.
	result, err := Run(baseScenario(Assertion{Type: "final_state"}))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `unknown assertion type "final_state"`)
}
