package template_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/contracts"
	"github.com/Lumerin-protocol/actus-originator/internal/repositories/ledgermock"
	"github.com/Lumerin-protocol/actus-originator/internal/signer"
	"github.com/Lumerin-protocol/actus-originator/internal/template"
	"github.com/Lumerin-protocol/actus-originator/internal/terms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const creatorKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func setup(t *testing.T) (*template.Registry, *ledgermock.Ledger, signer.Identity, *terms.ExtendedTerms) {
	creator, err := signer.IdentityFromPrivateKey(creatorKey)
	require.NoError(t, err)

	raw, err := terms.DefaultPAM()
	require.NoError(t, err)
	raw.Currency = ledgermock.SettlementToken

	ext, err := terms.DeriveExtended(raw)
	require.NoError(t, err)

	log := &lib.LoggerMock{}
	ledger := ledgermock.NewLedger(log)
	return template.NewRegistry(ledger, ledgermock.NewPAMEngine(), log), ledger, creator, ext
}

func TestCreateLoad(t *testing.T) {
	registry, _, creator, ext := setup(t)

	tpl, err := registry.Create(context.Background(), creator, ext)
	require.NoError(t, err)
	require.Equal(t, ext, tpl.Terms)
	require.NotEmpty(t, tpl.Schedule)

	id, err := template.ContentID(ext, tpl.Schedule)
	require.NoError(t, err)
	require.Equal(t, id, tpl.ID)

	loaded, err := registry.Load(context.Background(), tpl.ID)
	require.NoError(t, err)
	require.Equal(t, tpl, loaded)
}

func TestLoadNotFound(t *testing.T) {
	registry, _, _, _ := setup(t)

	_, err := registry.Load(context.Background(), common.HexToHash("0xdead"))
	require.ErrorIs(t, err, template.ErrNotFound)
}

func TestCreateDuplicateRejected(t *testing.T) {
	registry, _, creator, ext := setup(t)

	_, err := registry.Create(context.Background(), creator, ext)
	require.NoError(t, err)

	_, err = registry.Create(context.Background(), creator, ext)
	require.ErrorIs(t, err, template.ErrRegistrationFailed)
	require.ErrorIs(t, err, contracts.ErrReverted)
}

func TestCreateTimeoutIsNotRejection(t *testing.T) {
	registry, ledger, creator, ext := setup(t)
	ledger.HoldFinality()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := registry.Create(ctx, creator, ext)
	require.ErrorIs(t, err, lib.ErrTimeout)
	require.False(t, errors.Is(err, template.ErrRegistrationFailed))

	var pending *contracts.PendingError
	require.ErrorAs(t, err, &pending)

	status, err := ledger.Reconcile(context.Background(), pending.Submission)
	require.NoError(t, err)
	require.Equal(t, contracts.TxPending, status)

	ledger.ReleaseFinality()
	status, err = ledger.Reconcile(context.Background(), pending.Submission)
	require.NoError(t, err)
	require.Equal(t, contracts.TxCommitted, status)

	schedule, err := ledgermock.NewPAMEngine().ComputeSchedule(context.Background(), ext.Terms)
	require.NoError(t, err)
	id, err := template.ContentID(ext, schedule)
	require.NoError(t, err)

	_, err = registry.Load(context.Background(), id)
	require.NoError(t, err)
}

func TestCreateRejectsMissingTerms(t *testing.T) {
	registry, _, creator, _ := setup(t)

	_, err := registry.Create(context.Background(), creator, nil)
	require.ErrorIs(t, err, terms.ErrMalformedTerms)
}
