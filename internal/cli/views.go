package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/blocklog/internal/ir"
)

// receiptView renders a transaction receipt.
type receiptView struct {
	ir.Receipt
}

func (v receiptView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "tx:      %s\n", v.TxID)
	fmt.Fprintf(w, "seq:     %d\n", v.Seq)
	fmt.Fprintf(w, "kind:    %s\n", v.Kind)
	fmt.Fprintf(w, "period:  %d\n", v.Period)
	fmt.Fprintf(w, "signer:  %s\n", v.Signer)
	fmt.Fprintf(w, "target:  %s\n", v.Target)
	if v.ErrorCode != "" {
		fmt.Fprintf(w, "status:  %s (%s)\n", v.Status, v.ErrorCode)
	} else {
		fmt.Fprintf(w, "status:  %s\n", v.Status)
	}
	if len(v.Logs) > 0 {
		fmt.Fprintln(w, "logs:")
		for _, line := range v.Logs {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// receiptListView renders receipts one per line.
type receiptListView struct {
	Receipts []ir.Receipt `json:"receipts"`
}

func (v receiptListView) WriteText(w io.Writer) {
	if len(v.Receipts) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	for _, r := range v.Receipts {
		status := string(r.Status)
		if r.ErrorCode != "" {
			status += " " + r.ErrorCode
		}
		fmt.Fprintf(w, "%6d  %s  %-10s period=%d  %s\n", r.Seq, r.TxID, r.Kind, r.Period, status)
	}
}

type eventView struct {
	Index   int       `json:"index"`
	Signer  ir.Pubkey `json:"signer"`
	Payload string    `json:"payload"` // hex
}

// storageView renders a period's storage account.
type storageView struct {
	Address  ir.Pubkey   `json:"address"`
	Period   uint64      `json:"period"`
	Bump     uint8       `json:"bump"`
	Lamports uint64      `json:"lamports"`
	Events   []eventView `json:"events"`

	payloads [][]byte
}

func newStorageView(s ir.EventStorage) storageView {
	v := storageView{
		Address:  s.Address,
		Period:   s.Period,
		Bump:     s.Bump,
		Lamports: s.Lamports,
		Events:   make([]eventView, len(s.Events)),
		payloads: s.Events,
	}
	for i, payload := range s.Events {
		v.Events[i] = eventView{
			Index:   i,
			Signer:  s.Signers[i],
			Payload: hex.EncodeToString(payload),
		}
	}
	return v
}

func (v storageView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "address:  %s\n", v.Address)
	fmt.Fprintf(w, "period:   %d\n", v.Period)
	fmt.Fprintf(w, "bump:     %d\n", v.Bump)
	fmt.Fprintf(w, "lamports: %d\n", v.Lamports)
	fmt.Fprintf(w, "events:   %d\n", len(v.Events))
	for i, ev := range v.Events {
		fmt.Fprintf(w, "  [%d] %s %s\n", ev.Index, ev.Signer, displayPayload(v.payloads[i]))
	}
}

// displayPayload quotes printable text and hex-encodes anything else.
func displayPayload(b []byte) string {
	if len(b) == 0 {
		return `""`
	}
	if utf8.Valid(b) && !strings.ContainsFunc(string(b), func(r rune) bool { return !unicode.IsPrint(r) }) {
		return fmt.Sprintf("%q", b)
	}
	return "0x" + hex.EncodeToString(b)
}

// rawView carries the binary account encoding.
type rawView struct {
	Address  ir.Pubkey `json:"address"`
	Encoding string    `json:"encoding"`
	Data     string    `json:"data"`
}

func (v rawView) WriteText(w io.Writer) {
	fmt.Fprintln(w, v.Data)
}

// kvView renders labelled values in a fixed order.
type kvView struct {
	keys   []string
	values map[string]any
}

func newKV() *kvView {
	return &kvView{values: make(map[string]any)}
}

func (v *kvView) add(key string, value any) *kvView {
	v.keys = append(v.keys, key)
	v.values[key] = value
	return v
}

// MarshalJSON encodes the values as an object.
func (v *kvView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.values)
}

func (v *kvView) WriteText(w io.Writer) {
	width := 0
	for _, k := range v.keys {
		width = max(width, len(k))
	}
	for _, k := range v.keys {
		fmt.Fprintf(w, "%-*s  %v\n", width+1, k+":", v.values[k])
	}
}
