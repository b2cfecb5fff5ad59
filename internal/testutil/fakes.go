package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mudanzasalegre/Dripio/internal/domain"
)

// FakeDirectory is an in-memory stand-in for the directory and
// role-authority collaborators.
type FakeDirectory struct {
	Projects    map[uuid.UUID]domain.ProjectInfo
	Owners      map[uuid.UUID]domain.Wallet
	Employees   map[string]bool // projectID|wallet
	GlobalRoles map[string]bool // role|wallet
	LocalAdmins map[string]bool // companyID|wallet
}

func NewFakeDirectory() *FakeDirectory {
	return &FakeDirectory{
		Projects:    make(map[uuid.UUID]domain.ProjectInfo),
		Owners:      make(map[uuid.UUID]domain.Wallet),
		Employees:   make(map[string]bool),
		GlobalRoles: make(map[string]bool),
		LocalAdmins: make(map[string]bool),
	}
}

func (d *FakeDirectory) AddProject(projectID, companyID uuid.UUID, active bool) {
	d.Projects[projectID] = domain.ProjectInfo{
		ProjectID: projectID,
		CompanyID: companyID,
		IsActive:  active,
	}
}

func (d *FakeDirectory) SetEmployee(projectID uuid.UUID, wallet domain.Wallet, active bool) {
	d.Employees[projectID.String()+"|"+string(wallet)] = active
}

func (d *FakeDirectory) GrantGlobalRole(role domain.Role, wallet domain.Wallet) {
	d.GlobalRoles[string(role)+"|"+string(wallet)] = true
}

func (d *FakeDirectory) SetLocalAdmin(companyID uuid.UUID, wallet domain.Wallet) {
	d.LocalAdmins[companyID.String()+"|"+string(wallet)] = true
}

func (d *FakeDirectory) ProjectInfo(_ context.Context, projectID uuid.UUID) (*domain.ProjectInfo, error) {
	info, ok := d.Projects[projectID]
	if !ok {
		return nil, fmt.Errorf("ProjectInfo: %w", domain.ErrNotFound)
	}
	return &info, nil
}

func (d *FakeDirectory) CompanyOwner(_ context.Context, companyID uuid.UUID) (domain.Wallet, error) {
	owner, ok := d.Owners[companyID]
	if !ok {
		return "", fmt.Errorf("CompanyOwner: %w", domain.ErrNotFound)
	}
	return owner, nil
}

func (d *FakeDirectory) IsEmployeeActive(_ context.Context, projectID uuid.UUID, wallet domain.Wallet) (bool, error) {
	return d.Employees[projectID.String()+"|"+string(wallet)], nil
}

func (d *FakeDirectory) HasGlobalRole(_ context.Context, role domain.Role, wallet domain.Wallet) (bool, error) {
	return d.GlobalRoles[string(role)+"|"+string(wallet)], nil
}

func (d *FakeDirectory) IsLocalProjectAdmin(_ context.Context, companyID uuid.UUID, wallet domain.Wallet) (bool, error) {
	return d.LocalAdmins[companyID.String()+"|"+string(wallet)], nil
}

// Transfer records one custodian movement observed by FakeCustodian.
type Transfer struct {
	Direction string // "pull" or "push"
	Asset     domain.Asset
	Wallet    domain.Wallet
	Amount    int64
}

// FakeCustodian records transfers and can be told to fail, to test
// that ledger mutations roll back when the asset movement does not
// happen.
type FakeCustodian struct {
	mu        sync.Mutex
	Transfers []Transfer
	FailPull  bool
	FailPush  bool
}

func (c *FakeCustodian) Pull(_ context.Context, asset domain.Asset, from domain.Wallet, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailPull {
		return fmt.Errorf("Pull: %w", domain.ErrTransferFailed)
	}
	c.Transfers = append(c.Transfers, Transfer{Direction: "pull", Asset: asset, Wallet: from, Amount: amount})
	return nil
}

func (c *FakeCustodian) Push(_ context.Context, asset domain.Asset, to domain.Wallet, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailPush {
		return fmt.Errorf("Push: %w", domain.ErrTransferFailed)
	}
	c.Transfers = append(c.Transfers, Transfer{Direction: "push", Asset: asset, Wallet: to, Amount: amount})
	return nil
}

// Pushed sums the amounts pushed to the given wallet.
func (c *FakeCustodian) Pushed(wallet domain.Wallet) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, tr := range c.Transfers {
		if tr.Direction == "push" && tr.Wallet == wallet {
			total += tr.Amount
		}
	}
	return total
}
