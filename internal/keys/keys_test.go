package keys

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.Pubkey(), b.Pubkey())
}

func TestFromSeed_Deterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)

	a, err := FromSeed(seed)
	require.NoError(t, err)
	b, err := FromSeed(seed)
	require.NoError(t, err)

	assert.Equal(t, a.Pubkey(), b.Pubkey())
	assert.Equal(t, seed, a.Seed())
}

func TestFromSeed_WrongLength(t *testing.T) {
	_, err := FromSeed([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestFromPrivateKey_MismatchedPublicHalf(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	b := kp.Bytes()
	b[40] ^= 0xff
	_, err = FromPrivateKey(b)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDerive(t *testing.T) {
	master := []byte("scenario master")

	alice1, err := Derive(master, "alice")
	require.NoError(t, err)
	alice2, err := Derive(master, "alice")
	require.NoError(t, err)
	bob, err := Derive(master, "bob")
	require.NoError(t, err)
	otherMaster, err := Derive([]byte("other"), "alice")
	require.NoError(t, err)

	assert.Equal(t, alice1.Pubkey(), alice2.Pubkey())
	assert.NotEqual(t, alice1.Pubkey(), bob.Pubkey())
	assert.NotEqual(t, alice1.Pubkey(), otherMaster.Pubkey())

	_, err = Derive(master, "")
	assert.Error(t, err)
	_, err = Derive(nil, "alice")
	assert.Error(t, err)
}

func TestSign_Verifies(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	sig := kp.Sign([]byte("message"))
	assert.Len(t, sig, 64)

	other, err := FromPrivateKey(kp.Bytes())
	require.NoError(t, err)
	assert.Equal(t, sig, other.Sign([]byte("message")), "ed25519 signatures are deterministic")
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.json")
	kp, err := Generate()
	require.NoError(t, err)

	require.NoError(t, Save(path, kp))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("[")), "keypair file is a JSON array")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, kp.Pubkey(), loaded.Pubkey())
	assert.Equal(t, kp.Bytes(), loaded.Bytes())
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"not-json":     "hello",
		"short":        "[1,2,3]",
		"out-of-range": "[" + string(bytes.Repeat([]byte("300,"), 63)) + "300]",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
