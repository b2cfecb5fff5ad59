package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet identifies an external fund holder in the underlying asset
// protocol: a funder, a stream recipient, or the platform fee sink.
type Wallet string

// Asset identifies a fungible asset custodied by the treasury. The
// distinguished native asset is deposited by attaching value to the
// call instead of pulling it from the funder's wallet.
type Asset string

type LedgerKey struct {
	CompanyID uuid.UUID
	ProjectID uuid.UUID
	Asset     Asset
}

// SubLedger is the balance bucket for one (company, project, asset)
// key. Created on first deposit, never deleted; zero balance is a
// valid terminal state.
type SubLedger struct {
	CompanyID uuid.UUID
	ProjectID uuid.UUID
	Asset     Asset
	Balance   int64
	Version   int64
	CreatedAt time.Time
}

func (l *SubLedger) Key() LedgerKey {
	return LedgerKey{CompanyID: l.CompanyID, ProjectID: l.ProjectID, Asset: l.Asset}
}

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

type EntryReason string

const (
	EntryReasonDeposit    EntryReason = "deposit"
	EntryReasonWithdrawal EntryReason = "withdrawal"
	EntryReasonStreamFee  EntryReason = "stream_fee"
	EntryReasonPayout     EntryReason = "stream_payout"
	EntryReasonIndemnity  EntryReason = "stream_indemnity"
)

// TreasuryEntry is one audit row per balance mutation, recording the
// balance on both sides of the movement and the external counterparty.
type TreasuryEntry struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	ProjectID     uuid.UUID
	Asset         Asset
	EntryType     EntryType
	Reason        EntryReason
	Amount        int64
	BalanceBefore int64
	BalanceAfter  int64
	Counterparty  Wallet
	StreamID      *int64
	CreatedAt     time.Time
}
