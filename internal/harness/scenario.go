package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh event log.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Accounts maps signer names to the lamports airdropped to them before
	// the first step. Signers not listed start with nothing.
	Accounts map[string]uint64 `yaml:"accounts,omitempty"`

	// Steps run in order, one transaction or read each.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step operations.
const (
	OpInitialize = "initialize"
	OpAppend     = "append"
	OpRead       = "read"
)

// Step is one operation in a scenario.
type Step struct {
	Op     string `yaml:"op"`
	Period uint64 `yaml:"period"`

	// Signer names the keypair that signs the transaction.
	// Required for initialize and append.
	Signer string `yaml:"signer,omitempty"`

	// Payload is the event body as text. PayloadHex takes raw bytes instead.
	Payload    string `yaml:"payload,omitempty"`
	PayloadHex string `yaml:"payload_hex,omitempty"`

	// TargetPeriod makes the transaction target the account of another
	// period instead of its own.
	TargetPeriod *uint64 `yaml:"target_period,omitempty"`

	// TxID fixes the transaction ID. Reusing an ID replays the transaction.
	TxID string `yaml:"tx_id,omitempty"`

	// Tamper flips a bit of the signature after signing.
	Tamper bool `yaml:"tamper,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
// Omitted fields are not checked; an omitted Error means success.
type Expect struct {
	// Error is the expected error code, e.g. ALREADY_INITIALIZED or
	// INVALID_SIGNATURE.
	Error string `yaml:"error,omitempty"`

	// Index is the expected position of an appended event.
	Index *uint64 `yaml:"index,omitempty"`

	// Events and Signers are the full expected contents of a read.
	Events  []string `yaml:"events,omitempty"`
	Signers []string `yaml:"signers,omitempty"`
}

// PayloadBytes returns the step's payload.
func (s Step) PayloadBytes() ([]byte, error) {
	if s.PayloadHex != "" {
		b, err := hex.DecodeString(s.PayloadHex)
		if err != nil {
			return nil, fmt.Errorf("payload_hex: %w", err)
		}
		return b, nil
	}
	return []byte(s.Payload), nil
}

// Assertion types.
const (
	AssertEventCount   = "event_count"
	AssertBalance      = "balance"
	AssertReceiptCount = "receipt_count"
	AssertAuditClean   = "audit_clean"
)

// Assertion validates the final state.
type Assertion struct {
	// Type is one of event_count, balance, receipt_count, audit_clean.
	Type string `yaml:"type"`

	// Period selects the account (event_count).
	Period uint64 `yaml:"period,omitempty"`

	// Account names a signer (balance).
	Account string `yaml:"account,omitempty"`

	// Lamports is the expected balance (balance).
	Lamports uint64 `yaml:"lamports"`

	// Status filters receipts (receipt_count); empty counts all.
	Status string `yaml:"status,omitempty"`

	// Count is the expected number of events or receipts.
	Count int `yaml:"count"`
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	switch step.Op {
	case OpInitialize, OpAppend:
		if step.Signer == "" {
			return fmt.Errorf("steps[%d]: signer is required for %s", index, step.Op)
		}
	case OpRead:
		if step.Signer != "" || step.TxID != "" || step.Tamper || step.TargetPeriod != nil {
			return fmt.Errorf("steps[%d]: read takes only period and expect", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Op != OpAppend && (step.Payload != "" || step.PayloadHex != "") {
		return fmt.Errorf("steps[%d]: payload is only valid for append", index)
	}
	if step.Payload != "" && step.PayloadHex != "" {
		return fmt.Errorf("steps[%d]: payload and payload_hex are mutually exclusive", index)
	}
	if _, err := step.PayloadBytes(); err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}

	if e := step.Expect; e != nil {
		if e.Index != nil && step.Op != OpAppend {
			return fmt.Errorf("steps[%d].expect: index is only valid for append", index)
		}
		if (e.Events != nil || e.Signers != nil) && step.Op != OpRead {
			return fmt.Errorf("steps[%d].expect: events and signers are only valid for read", index)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertBalance:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for balance", index)
		}
	case AssertReceiptCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		if a.Status != "" && a.Status != StatusOK && a.Status != StatusFailed {
			return fmt.Errorf("assertions[%d]: status must be ok or failed, got %q", index, a.Status)
		}
	case AssertAuditClean:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
