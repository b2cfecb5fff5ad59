package treasury_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mudanzasalegre/Dripio/internal/domain"
	"github.com/mudanzasalegre/Dripio/internal/repository"
	"github.com/mudanzasalegre/Dripio/internal/service/treasury"
	"github.com/mudanzasalegre/Dripio/internal/testutil"
)

func setupTreasuryService(t *testing.T, db *sql.DB, custodian *testutil.FakeCustodian, directory *testutil.FakeDirectory) *treasury.Service {
	t.Helper()
	return treasury.NewService(
		repository.NewLedgerRepository(db),
		repository.NewEntryRepository(db),
		repository.NewMoverRepository(db),
		custodian,
		directory,
		db,
		"native",
	)
}

func testKey(asset domain.Asset) domain.LedgerKey {
	return domain.LedgerKey{
		CompanyID: uuid.New(),
		ProjectID: uuid.New(),
		Asset:     asset,
	}
}

func TestDeposit_TokenAsset_PullsAndCredits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())
	ctx := context.Background()

	key := testKey("usdc")
	entry, err := svc.Deposit(ctx, "wallet-funder", treasury.DepositRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    5000,
		From:      "wallet-funder",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeCredit, entry.EntryType)
	assert.Equal(t, int64(5000), entry.Amount)
	assert.Equal(t, int64(0), entry.BalanceBefore)
	assert.Equal(t, int64(5000), entry.BalanceAfter)

	assert.Equal(t, int64(5000), testutil.GetLedgerBalance(t, db, key))
	assert.Equal(t, 1, testutil.CountTreasuryEntries(t, db, key))

	require.Len(t, custodian.Transfers, 1)
	assert.Equal(t, "pull", custodian.Transfers[0].Direction)
	assert.Equal(t, int64(5000), custodian.Transfers[0].Amount)
}

func TestDeposit_NativeAsset_UsesAttachedAmount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())
	ctx := context.Background()

	key := testKey("native")
	_, err := svc.Deposit(ctx, "wallet-funder", treasury.DepositRequest{
		CompanyID:      key.CompanyID,
		ProjectID:      key.ProjectID,
		Asset:          key.Asset,
		Amount:         9999, // ignored for the native asset
		From:           "wallet-funder",
		AttachedAmount: 1200,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1200), testutil.GetLedgerBalance(t, db, key))
	// Value travels with the call itself, so the custodian is never
	// asked to pull.
	assert.Empty(t, custodian.Transfers)
}

func TestDeposit_NativeAsset_ZeroAttached(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTreasuryService(t, db, &testutil.FakeCustodian{}, testutil.NewFakeDirectory())

	key := testKey("native")
	_, err := svc.Deposit(context.Background(), "wallet-funder", treasury.DepositRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    500,
	})

	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, int64(0), testutil.GetLedgerBalance(t, db, key))
}

func TestDeposit_PullFailure_RollsBackCredit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{FailPull: true}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())

	key := testKey("usdc")
	_, err := svc.Deposit(context.Background(), "wallet-funder", treasury.DepositRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    5000,
		From:      "wallet-funder",
	})

	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, int64(0), testutil.GetLedgerBalance(t, db, key))
	assert.Equal(t, 0, testutil.CountTreasuryEntries(t, db, key))
}

func TestWithdraw_Mover_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())
	ctx := context.Background()

	key := testKey("usdc")
	testutil.SeedSubLedger(t, db, key, 10_000)
	testutil.SeedMover(t, db, "wallet-mover")

	entry, err := svc.Withdraw(ctx, "wallet-mover", treasury.WithdrawRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    3000,
		Recipient: "wallet-payee",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.EntryTypeDebit, entry.EntryType)
	assert.Equal(t, domain.EntryReasonWithdrawal, entry.Reason)
	assert.Equal(t, int64(10_000), entry.BalanceBefore)
	assert.Equal(t, int64(7000), entry.BalanceAfter)

	assert.Equal(t, int64(7000), testutil.GetLedgerBalance(t, db, key))
	assert.Equal(t, int64(3000), custodian.Pushed("wallet-payee"))
}

func TestWithdraw_TreasuryAdminWithoutMoverEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	directory := testutil.NewFakeDirectory()
	directory.GrantGlobalRole(domain.RoleTreasuryAdmin, "wallet-admin")
	svc := setupTreasuryService(t, db, &testutil.FakeCustodian{}, directory)

	key := testKey("usdc")
	testutil.SeedSubLedger(t, db, key, 1000)

	_, err := svc.Withdraw(context.Background(), "wallet-admin", treasury.WithdrawRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    400,
		Recipient: "wallet-payee",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(600), testutil.GetLedgerBalance(t, db, key))
}

func TestWithdraw_UnauthorizedCaller(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())

	key := testKey("usdc")
	testutil.SeedSubLedger(t, db, key, 1000)

	_, err := svc.Withdraw(context.Background(), "wallet-stranger", treasury.WithdrawRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    400,
		Recipient: "wallet-stranger",
	})

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, int64(1000), testutil.GetLedgerBalance(t, db, key))
	assert.Empty(t, custodian.Transfers)
}

func TestWithdraw_InsufficientFunds_LeavesBalanceUntouched(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())

	key := testKey("usdc")
	testutil.SeedSubLedger(t, db, key, 100)
	testutil.SeedMover(t, db, "wallet-mover")

	_, err := svc.Withdraw(context.Background(), "wallet-mover", treasury.WithdrawRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    101,
		Recipient: "wallet-payee",
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(100), testutil.GetLedgerBalance(t, db, key))
	assert.Equal(t, 0, testutil.CountTreasuryEntries(t, db, key))
	assert.Empty(t, custodian.Transfers)
}

func TestWithdraw_PushFailure_RollsBackDebit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{FailPush: true}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())

	key := testKey("usdc")
	testutil.SeedSubLedger(t, db, key, 5000)
	testutil.SeedMover(t, db, "wallet-mover")

	_, err := svc.Withdraw(context.Background(), "wallet-mover", treasury.WithdrawRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    2000,
		Recipient: "wallet-payee",
	})

	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.Equal(t, int64(5000), testutil.GetLedgerBalance(t, db, key))
	assert.Equal(t, 0, testutil.CountTreasuryEntries(t, db, key))
}

func TestGetBalance_UnknownKeyIsZero(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupTreasuryService(t, db, &testutil.FakeCustodian{}, testutil.NewFakeDirectory())

	balance, err := svc.GetBalance(context.Background(), testKey("usdc"))

	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestBalance_ConservedAcrossDepositsAndWithdrawals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())
	ctx := context.Background()

	key := testKey("usdc")
	testutil.SeedMover(t, db, "wallet-mover")

	deposits := []int64{700, 1300, 50}
	for _, amount := range deposits {
		_, err := svc.Deposit(ctx, "wallet-funder", treasury.DepositRequest{
			CompanyID: key.CompanyID,
			ProjectID: key.ProjectID,
			Asset:     key.Asset,
			Amount:    amount,
			From:      "wallet-funder",
		})
		require.NoError(t, err)
	}
	withdrawals := []int64{900, 150}
	for _, amount := range withdrawals {
		_, err := svc.Withdraw(ctx, "wallet-mover", treasury.WithdrawRequest{
			CompanyID: key.CompanyID,
			ProjectID: key.ProjectID,
			Asset:     key.Asset,
			Amount:    amount,
			Recipient: "wallet-payee",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(700+1300+50-900-150), testutil.GetLedgerBalance(t, db, key))
	assert.Equal(t, int64(900+150), custodian.Pushed("wallet-payee"))
	assert.Equal(t, 5, testutil.CountTreasuryEntries(t, db, key))
}

func TestMoverAdmin_RequiresTreasuryRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	directory := testutil.NewFakeDirectory()
	directory.GrantGlobalRole(domain.RoleTreasuryAdmin, "wallet-admin")
	svc := setupTreasuryService(t, db, &testutil.FakeCustodian{}, directory)
	ctx := context.Background()

	err := svc.AddMover(ctx, "wallet-stranger", "wallet-mover")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.AddMover(ctx, "wallet-admin", "wallet-mover"))

	err = svc.AddMover(ctx, "wallet-admin", "wallet-mover")
	assert.ErrorIs(t, err, domain.ErrMoverExists)

	wallets, err := svc.ListMovers(ctx, "wallet-admin")
	require.NoError(t, err)
	assert.Equal(t, []domain.Wallet{"wallet-mover"}, wallets)

	require.NoError(t, svc.RemoveMover(ctx, "wallet-admin", "wallet-mover"))
	err = svc.RemoveMover(ctx, "wallet-admin", "wallet-mover")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeposit_EntriesStampedWithServiceClock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())
	ctx := context.Background()

	pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return pinned })

	key := testKey("usdc")
	entry, err := svc.Deposit(ctx, "wallet-funder", treasury.DepositRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    5000,
		From:      "wallet-funder",
	})

	require.NoError(t, err)
	assert.Equal(t, pinned, entry.CreatedAt)
}

func TestWithdraw_EntriesStampedWithServiceClock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	custodian := &testutil.FakeCustodian{}
	svc := setupTreasuryService(t, db, custodian, testutil.NewFakeDirectory())
	ctx := context.Background()

	pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return pinned })

	key := testKey("usdc")
	testutil.SeedSubLedger(t, db, key, 10_000)
	testutil.SeedMover(t, db, "wallet-mover")

	entry, err := svc.Withdraw(ctx, "wallet-mover", treasury.WithdrawRequest{
		CompanyID: key.CompanyID,
		ProjectID: key.ProjectID,
		Asset:     key.Asset,
		Amount:    3000,
		Recipient: "wallet-payee",
	})

	require.NoError(t, err)
	assert.Equal(t, pinned, entry.CreatedAt)
}
