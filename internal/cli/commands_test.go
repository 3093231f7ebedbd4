package cli

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocklog/internal/address"
	"github.com/roach88/blocklog/internal/ir"
	"github.com/roach88/blocklog/internal/keys"
	"github.com/roach88/blocklog/internal/store"
	"github.com/roach88/blocklog/internal/testutil"
)

// cliEnv runs root commands against one temp database.
type cliEnv struct {
	t   *testing.T
	dir string
	db  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	return &cliEnv{t: t, dir: dir, db: filepath.Join(dir, "test.db")}
}

// run executes the root command in JSON mode and returns stdout.
func (c *cliEnv) run(args ...string) (string, error) {
	c.t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", c.db, "--format", "json"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// ok runs args, requires success and returns the response data.
func (c *cliEnv) ok(args ...string) map[string]any {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	resp := decodeResponse(c.t, out)
	require.Equal(c.t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(c.t, ok, "data is %T", resp.Data)
	return data
}

// fail runs args, requires an instruction-level failure and returns the response.
func (c *cliEnv) fail(wantCode string, args ...string) CLIResponse {
	c.t.Helper()
	out, err := c.run(args...)
	require.Error(c.t, err)
	assert.Equal(c.t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(c.t, out)
	require.Equal(c.t, "error", resp.Status)
	require.NotNil(c.t, resp.Error)
	assert.Equal(c.t, wantCode, resp.Error.Code)
	return resp
}

// keypair writes the named test keypair to a file and returns its path.
func (c *cliEnv) keypair(name string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name+".json")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	require.NoError(c.t, keys.Save(path, testutil.MustNamedKeypair(name)))
	return path
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestDeriveCommand(t *testing.T) {
	c := newCLIEnv(t)

	want, bump, err := address.NewDeriver().Derive(42)
	require.NoError(t, err)

	data := c.ok("derive", "--period", "42")
	assert.Equal(t, want.String(), data["address"])
	assert.Equal(t, float64(bump), data["bump"])
	assert.Equal(t, float64(42), data["period"])
	assert.Equal(t, address.DefaultProgramID.String(), data["program_id"])
	assert.Equal(t, "2a00000000000000", data["period_seed"])
}

func TestDeriveCommandUsesConfig(t *testing.T) {
	c := newCLIEnv(t)
	cfgPath := filepath.Join(c.dir, "blocklog.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("namespace: other_storage\n"), 0644))

	d := address.NewDeriver()
	d.Namespace = "other_storage"
	want, _, err := d.Derive(42)
	require.NoError(t, err)

	data := c.ok("--config", cfgPath, "derive", "--period", "42")
	assert.Equal(t, want.String(), data["address"])
}

func TestDeriveCommandBadConfig(t *testing.T) {
	c := newCLIEnv(t)
	cfgPath := filepath.Join(c.dir, "blocklog.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("unknown_key: 1\n"), 0644))

	_, err := c.run("--config", cfgPath, "derive", "--period", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDeriveCommandText(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"derive", "--period", "7"})
	require.NoError(t, cmd.Execute())

	want, _, err := address.NewDeriver().Derive(7)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "address:")
	assert.Contains(t, out.String(), want.String())
}

func TestKeygenCommand(t *testing.T) {
	c := newCLIEnv(t)
	path := filepath.Join(c.dir, "new.json")

	data := c.ok("keygen", "--out", path)
	assert.Equal(t, path, data["path"])

	kp, err := keys.Load(path)
	require.NoError(t, err)
	assert.Equal(t, kp.Pubkey().String(), data["pubkey"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = c.run("keygen", "--out", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	data = c.ok("keygen", "--out", path, "--force")
	assert.NotEqual(t, kp.Pubkey().String(), data["pubkey"])
}

func TestAirdropAndBalance(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	pub := testutil.MustNamedKeypair("alice").Pubkey().String()

	data := c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	assert.Equal(t, pub, data["identity"])
	assert.Equal(t, float64(5000000), data["balance"])

	data = c.ok("airdrop", "--to", pub, "--lamports", "1")
	assert.Equal(t, float64(5000001), data["balance"])

	data = c.ok("balance", "--of", pub)
	assert.Equal(t, float64(5000001), data["lamports"])
	assert.Equal(t, float64(1064880), data["initialize_fee"])
}

func TestBalanceUnknownIdentity(t *testing.T) {
	c := newCLIEnv(t)
	data := c.ok("balance", "--of", testutil.MustNamedKeypair("nobody").Pubkey().String())
	assert.Equal(t, float64(0), data["lamports"])
}

func TestBalanceBadIdentity(t *testing.T) {
	c := newCLIEnv(t)
	_, err := c.run("balance", "--of", "not-a-key-or-file")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInitAppendShow(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	bob := c.keypair("bob")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")

	addr, _, err := address.NewDeriver().Derive(7)
	require.NoError(t, err)

	data := c.ok("init", "--period", "7", "--funder", alice)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, addr.String(), data["target"])
	assert.Equal(t, float64(1), data["seq"])

	data = c.ok("append", "--period", "7", "--signer", alice, "--payload", "hello")
	assert.Equal(t, float64(2), data["seq"])
	c.ok("append", "--period", "7", "--signer", bob, "--payload-hex", "00ff")

	payloadFile := filepath.Join(c.dir, "event.bin")
	require.NoError(t, os.WriteFile(payloadFile, []byte{}, 0644))
	c.ok("append", "--period", "7", "--signer", alice, "--payload-file", payloadFile)

	data = c.ok("show", "--period", "7")
	assert.Equal(t, addr.String(), data["address"])
	assert.Equal(t, float64(1064880), data["lamports"])
	events, ok := data["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 3)

	first := events[0].(map[string]any)
	assert.Equal(t, "68656c6c6f", first["payload"])
	assert.Equal(t, testutil.MustNamedKeypair("alice").Pubkey().String(), first["signer"])
	second := events[1].(map[string]any)
	assert.Equal(t, "00ff", second["payload"])
	assert.Equal(t, testutil.MustNamedKeypair("bob").Pubkey().String(), second["signer"])
	third := events[2].(map[string]any)
	assert.Equal(t, "", third["payload"])

	balance := c.ok("balance", "--of", alice)
	assert.Equal(t, float64(5000000-1064880), balance["lamports"])
}

func TestShowRaw(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	c.ok("init", "--period", "3", "--funder", alice)
	c.ok("append", "--period", "3", "--signer", alice, "--payload", "raw")

	data := c.ok("show", "--period", "3", "--raw")
	assert.Equal(t, "base64", data["encoding"])

	raw, err := base64.StdEncoding.DecodeString(data["data"].(string))
	require.NoError(t, err)
	storage, err := ir.DecodeEventStorage(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), storage.Period)
	assert.Equal(t, [][]byte{[]byte("raw")}, storage.Events)
	assert.Equal(t, []ir.Pubkey{testutil.MustNamedKeypair("alice").Pubkey()}, storage.Signers)
}

func TestShowText(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	c.ok("init", "--period", "3", "--funder", alice)
	c.ok("append", "--period", "3", "--signer", alice, "--payload", "hello")
	c.ok("append", "--period", "3", "--signer", alice, "--payload-hex", "00ff")

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", c.db, "show", "--period", "3"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "events:   2")
	assert.Contains(t, out.String(), `[0] `)
	assert.Contains(t, out.String(), `"hello"`)
	assert.Contains(t, out.String(), "0x00ff")
}

func TestInitFailures(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	carol := c.keypair("carol")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	c.ok("airdrop", "--to", carol, "--lamports", "1000")

	c.ok("init", "--period", "7", "--funder", alice)

	resp := c.fail("ALREADY_INITIALIZED", "init", "--period", "7", "--funder", alice)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok, "failed receipt is attached")
	assert.Equal(t, "failed", details["status"])

	c.fail("INSUFFICIENT_FUNDS", "init", "--period", "8", "--funder", carol)

	// Neither failure moved funds.
	assert.Equal(t, float64(5000000-1064880), c.ok("balance", "--of", alice)["lamports"])
	assert.Equal(t, float64(1000), c.ok("balance", "--of", carol)["lamports"])
}

func TestAppendFailures(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	c.ok("init", "--period", "7", "--funder", alice)

	c.fail("NOT_INITIALIZED", "append", "--period", "8", "--signer", alice, "--payload", "x")

	addr7 := c.ok("derive", "--period", "7")["address"].(string)
	c.fail("ADDRESS_MISMATCH", "append", "--period", "8", "--signer", alice, "--payload", "x", "--target", addr7)

	// The explicit target of the right period is accepted.
	c.ok("append", "--period", "7", "--signer", alice, "--payload", "x", "--target", addr7)

	events := c.ok("show", "--period", "7")["events"].([]any)
	assert.Len(t, events, 1)
}

func TestAppendBadFlags(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")

	_, err := c.run("append", "--period", "1", "--signer", alice, "--payload", "a", "--payload-hex", "00")
	require.Error(t, err)

	_, err = c.run("append", "--period", "1", "--signer", alice, "--payload-hex", "zz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = c.run("append", "--period", "1", "--signer", alice, "--target", "not-base58!")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = c.run("append", "--period", "1", "--signer", alice, "--payload-file", filepath.Join(c.dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInitWithoutKeypair(t *testing.T) {
	c := newCLIEnv(t)
	_, err := c.run("init", "--period", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigKeypairIsDefaultSigner(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	cfgPath := filepath.Join(c.dir, "blocklog.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("keypair: "+alice+"\n"), 0644))

	c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	c.ok("--config", cfgPath, "init", "--period", "1")
	c.ok("--config", cfgPath, "append", "--period", "1", "--payload", "x")
}

func TestShowNotFound(t *testing.T) {
	c := newCLIEnv(t)
	c.fail("NOT_FOUND", "show", "--period", "99")
}

func TestTxCommand(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")

	initData := c.ok("init", "--period", "7", "--funder", alice)
	c.fail("ALREADY_INITIALIZED", "init", "--period", "7", "--funder", alice)
	c.ok("append", "--period", "7", "--signer", alice, "--payload", "x")

	id := initData["tx_id"].(string)
	data := c.ok("tx", id)
	assert.Equal(t, id, data["tx_id"])
	assert.Equal(t, "initialize", data["kind"])
	logs, ok := data["logs"].([]any)
	require.True(t, ok)
	assert.Contains(t, logs, "Program log: Instruction: Initialize")

	list := c.ok("tx")
	receipts := list["receipts"].([]any)
	require.Len(t, receipts, 3)
	assert.Equal(t, "failed", receipts[1].(map[string]any)["status"])
	assert.Equal(t, "ALREADY_INITIALIZED", receipts[1].(map[string]any)["error_code"])

	list = c.ok("tx", "--limit", "1")
	assert.Len(t, list["receipts"].([]any), 1)
}

func TestTxNotFound(t *testing.T) {
	c := newCLIEnv(t)
	_, err := c.run("tx", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestAuditCommand(t *testing.T) {
	c := newCLIEnv(t)
	alice := c.keypair("alice")
	c.ok("airdrop", "--to", alice, "--lamports", "5000000")
	c.ok("init", "--period", "7", "--funder", alice)
	c.ok("append", "--period", "7", "--signer", alice, "--payload", "x")

	data := c.ok("audit")
	assert.Equal(t, float64(1), data["accounts"])
	assert.Equal(t, float64(1), data["events"])

	// Break the counter behind the store's back.
	st, err := store.Open(c.db)
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE accounts SET event_count = 5`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := c.run("audit")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	resp := decodeResponse(t, out)
	assert.Equal(t, "E_AUDIT_FAILED", resp.Error.Code)
}
