package ir

// EventStorage is the per-period log entity.
//
// Events and Signers are index-aligned: Signers[i] submitted Events[i].
type EventStorage struct {
	Address  Pubkey   `json:"address"`
	Period   uint64   `json:"period"`
	Events   [][]byte `json:"events"`
	Signers  []Pubkey `json:"signers"`
	Bump     uint8    `json:"bump"`
	Lamports uint64   `json:"lamports"`
}

// Len returns the number of appended events.
func (s EventStorage) Len() int {
	return len(s.Events)
}

// InstructionKind names an operation carried by a transaction.
type InstructionKind string

const (
	// InstructionInitialize creates the storage account for a period.
	InstructionInitialize InstructionKind = "initialize"

	// InstructionAppend appends one payload to a period's log.
	InstructionAppend InstructionKind = "append"
)

// ValidInstructionKinds defines the instruction kinds the engine accepts.
var ValidInstructionKinds = map[InstructionKind]bool{
	InstructionInitialize: true,
	InstructionAppend:     true,
}

// Instruction is the operation a transaction asks the engine to run.
//
// Target is the account address the caller believes corresponds to Period.
// The engine never trusts it: the address is re-derived and compared.
type Instruction struct {
	Kind    InstructionKind `json:"kind"`
	Period  uint64          `json:"period"`
	Payload []byte          `json:"payload,omitempty"`
	Target  Pubkey          `json:"target"`
}

// Transaction is a signed instruction submitted to the engine.
//
// For initialize the signer is also the funding identity debited for the
// allocation fee. For append the signer is recorded as the event's author.
type Transaction struct {
	ID          string      `json:"id"`
	Instruction Instruction `json:"instruction"`
	Signer      Pubkey      `json:"signer"`
	Signature   []byte      `json:"signature"`
}

// ReceiptStatus is the outcome of a processed transaction.
type ReceiptStatus string

const (
	StatusOK     ReceiptStatus = "ok"
	StatusFailed ReceiptStatus = "failed"
)

// Receipt records how the engine processed a transaction.
type Receipt struct {
	TxID      string          `json:"tx_id"`
	Seq       int64           `json:"seq"`
	Kind      InstructionKind `json:"kind"`
	Period    uint64          `json:"period"`
	Signer    Pubkey          `json:"signer"`
	Target    Pubkey          `json:"target"`
	Status    ReceiptStatus   `json:"status"`
	ErrorCode string          `json:"error_code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Logs      []string        `json:"logs"`
}

// OK reports whether the transaction succeeded.
func (r Receipt) OK() bool {
	return r.Status == StatusOK
}
