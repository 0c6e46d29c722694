package session

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrants/tvremote/internal/pairing"
	"github.com/dstrants/tvremote/internal/transport"
	"github.com/dstrants/tvremote/internal/transport/transporttest"
)

var tvAddr = netip.MustParseAddr("192.168.1.50")

func newManager(t *testing.T, fake *transporttest.Fake) (*Manager, *pairing.Store) {
	t.Helper()
	store := pairing.NewStore(t.TempDir())
	return NewManager(store, fake, nil), store
}

func TestOpen_NoRecordRequiresPairing(t *testing.T) {
	fake := &transporttest.Fake{}
	m, _ := newManager(t, fake)

	_, err := m.Open(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPairingRequired)
	assert.ErrorIs(t, err, pairing.ErrConfigMissing)
	assert.Zero(t, fake.ConnectCount(), "no device access without a record")
}

func TestOpen_InvalidRecord(t *testing.T) {
	fake := &transporttest.Fake{}
	m, store := newManager(t, fake)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), pairing.RecordFile), []byte("ip: nope\ntoken: x\n"), 0600))

	_, err := m.Open(context.Background(), nil)
	assert.ErrorIs(t, err, pairing.ErrConfigInvalid)
	assert.Zero(t, fake.ConnectCount())
}

func TestOpen_ExplicitPairsAndPersists(t *testing.T) {
	fake := &transporttest.Fake{IssuedKey: "issued-key", Prompt: true}
	m, store := newManager(t, fake)

	addr := tvAddr
	s, err := m.Open(context.Background(), &addr)
	require.NoError(t, err)
	s.Close()

	assert.Equal(t, []string{""}, fake.Presented, "explicit open forces a fresh pairing")
	assert.Equal(t, []transport.RegistrationEvent{transport.Prompted, transport.Registered}, fake.Events)
	assert.Equal(t, 1, fake.CloseCount())

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, pairing.Record{IP: tvAddr, Token: "issued-key"}, rec)
	assert.Equal(t, rec, s.Record())
}

func TestOpen_ExplicitOverwritesPriorRecord(t *testing.T) {
	fake := &transporttest.Fake{IssuedKey: "new-key"}
	m, store := newManager(t, fake)
	require.NoError(t, store.Save(pairing.Record{IP: netip.MustParseAddr("10.0.0.9"), Token: "old-key"}))

	addr := tvAddr
	s, err := m.Open(context.Background(), &addr)
	require.NoError(t, err)
	s.Close()

	assert.Equal(t, []netip.Addr{tvAddr}, fake.Connects)
	assert.Equal(t, []string{""}, fake.Presented, "stored token is not reused on explicit open")

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, pairing.Record{IP: tvAddr, Token: "new-key"}, rec)
}

func TestOpen_ExplicitRejectsNonIPv4(t *testing.T) {
	fake := &transporttest.Fake{}
	m, _ := newManager(t, fake)

	addr := netip.MustParseAddr("fe80::1")
	_, err := m.Open(context.Background(), &addr)
	assert.ErrorIs(t, err, pairing.ErrConfigInvalid)
	assert.Zero(t, fake.ConnectCount())
}

func TestOpen_StoredRecordRegistersEveryTime(t *testing.T) {
	fake := &transporttest.Fake{}
	m, store := newManager(t, fake)
	require.NoError(t, store.Save(pairing.Record{IP: tvAddr, Token: "stored-key"}))

	for i := 0; i < 3; i++ {
		s, err := m.Open(context.Background(), nil)
		require.NoError(t, err)
		s.Close()
	}

	assert.Equal(t, []string{"stored-key", "stored-key", "stored-key"}, fake.Presented)
	assert.Equal(t, []netip.Addr{tvAddr, tvAddr, tvAddr}, fake.Connects)
	assert.Equal(t, 3, fake.CloseCount())
}

func TestOpen_RereadsRecordEachTime(t *testing.T) {
	fake := &transporttest.Fake{}
	m, store := newManager(t, fake)
	require.NoError(t, store.Save(pairing.Record{IP: tvAddr, Token: "first"}))

	s, err := m.Open(context.Background(), nil)
	require.NoError(t, err)
	s.Close()

	other := netip.MustParseAddr("192.168.1.77")
	require.NoError(t, store.Save(pairing.Record{IP: other, Token: "second"}))

	s, err = m.Open(context.Background(), nil)
	require.NoError(t, err)
	s.Close()

	assert.Equal(t, []netip.Addr{tvAddr, other}, fake.Connects)
	assert.Equal(t, []string{"first", "second"}, fake.Presented)
}

func TestOpen_DifferentIssuedKeyKeepsRecord(t *testing.T) {
	fake := &transporttest.Fake{IssuedKey: "rotated"}
	m, store := newManager(t, fake)
	require.NoError(t, store.Save(pairing.Record{IP: tvAddr, Token: "stored-key"}))

	s, err := m.Open(context.Background(), nil)
	require.NoError(t, err)
	s.Close()

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "stored-key", rec.Token)
}

func TestOpen_Failures(t *testing.T) {
	tests := []struct {
		name       string
		fake       *transporttest.Fake
		wantErr    error
		wantCloses int
	}{
		{
			name:    "unreachable",
			fake:    &transporttest.Fake{ConnectErr: transport.ErrDeviceUnreachable},
			wantErr: transport.ErrDeviceUnreachable,
		},
		{
			name:       "rejected",
			fake:       &transporttest.Fake{RegisterErr: transport.ErrPairingRejected},
			wantErr:    transport.ErrPairingRejected,
			wantCloses: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store := newManager(t, tt.fake)
			require.NoError(t, store.Save(pairing.Record{IP: tvAddr, Token: "k"}))

			_, err := m.Open(context.Background(), nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCloses, tt.fake.CloseCount())
		})
	}
}

func TestOpen_ExplicitRejectedLeavesRecord(t *testing.T) {
	fake := &transporttest.Fake{RegisterErr: transport.ErrPairingRejected}
	m, store := newManager(t, fake)
	prior := pairing.Record{IP: netip.MustParseAddr("10.0.0.9"), Token: "old-key"}
	require.NoError(t, store.Save(prior))

	addr := tvAddr
	_, err := m.Open(context.Background(), &addr)
	require.ErrorIs(t, err, transport.ErrPairingRejected)

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, prior, rec)
}

type failingStore struct {
	*pairing.Store
}

func (failingStore) Save(pairing.Record) error { return errors.New("read-only filesystem") }

func TestOpen_SaveFailureClosesConnection(t *testing.T) {
	fake := &transporttest.Fake{}
	m := NewManager(failingStore{pairing.NewStore(t.TempDir())}, fake, nil)

	addr := tvAddr
	_, err := m.Open(context.Background(), &addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")
	assert.Equal(t, 1, fake.CloseCount())
}

func TestSession_Invoke(t *testing.T) {
	fake := &transporttest.Fake{
		Responses: map[string]transport.Response{
			transport.CmdGetVolume: {"volume": float64(12)},
		},
		Errors: map[string]error{
			transport.CmdChannelUp: errors.New("tuner busy"),
		},
	}
	m, store := newManager(t, fake)
	require.NoError(t, store.Save(pairing.Record{IP: tvAddr, Token: "k"}))

	s, err := m.Open(context.Background(), nil)
	require.NoError(t, err)
	defer s.Close()

	resp, err := s.Invoke(context.Background(), transport.CmdGetVolume, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(12), resp["volume"])

	_, err = s.Invoke(context.Background(), transport.CmdChannelUp, nil)
	assert.ErrorIs(t, err, transport.ErrCommandFailed)

	assert.Equal(t, []string{transport.CmdGetVolume, transport.CmdChannelUp}, fake.Commands())
}
