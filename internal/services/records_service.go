package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"school_asset_server/config"
	"school_asset_server/internal/models"
	"school_asset_server/internal/repository"
	"school_asset_server/internal/tenant"
)

// SoftwareService manages software titles
type SoftwareService struct {
	notifier Notifier
}

func NewSoftwareService(notifier Notifier) *SoftwareService {
	return &SoftwareService{notifier: orNop(notifier)}
}

func (s *SoftwareService) List(ctx context.Context) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]models.Software{})
	}
	titles, err := store.ListSoftware(ctx)
	if err != nil {
		return failure(err)
	}
	return success("Software retrieved successfully", titles, len(titles))
}

func (s *SoftwareService) Create(ctx context.Context, sw models.Software) Response {
	if strings.TrimSpace(sw.Name) == "" {
		return failure(invalid("software name is required"))
	}
	sw.ID = uuid.NewString()
	return s.save(ctx, sw, "created")
}

// Update replaces the title stored under id.
func (s *SoftwareService) Update(ctx context.Context, id string, sw models.Software) Response {
	store := tenant.StoreFrom(ctx)
	titles, err := store.ListSoftware(ctx)
	if err != nil {
		return failure(err)
	}
	if !containsID(len(titles), func(i int) string { return titles[i].ID }, id) {
		return failure(fmt.Errorf("software %q: %w", id, repository.ErrNotFound))
	}
	if strings.TrimSpace(sw.Name) == "" {
		return failure(invalid("software name is required"))
	}
	sw.ID = id
	return s.save(ctx, sw, "updated")
}

func (s *SoftwareService) save(ctx context.Context, sw models.Software, action string) Response {
	if sw.LicenseCount < 0 {
		return failure(invalid("license count must not be negative"))
	}
	sw.UpdatedAt = time.Now().UTC()
	if err := tenant.StoreFrom(ctx).SaveSoftware(ctx, sw); err != nil {
		return failure(err)
	}
	publish(ctx, s.notifier, "software", action, sw.ID)
	return success("Software "+action+" successfully", sw, 1)
}

func (s *SoftwareService) Delete(ctx context.Context, id string) Response {
	if err := tenant.StoreFrom(ctx).DeleteSoftware(ctx, id); err != nil {
		return failure(err)
	}
	publish(ctx, s.notifier, "software", "deleted", id)
	return success("Software deleted successfully", nil, 1)
}

// AccountService manages service accounts
type AccountService struct {
	notifier Notifier
}

func NewAccountService(notifier Notifier) *AccountService {
	return &AccountService{notifier: orNop(notifier)}
}

func (s *AccountService) List(ctx context.Context) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]models.Account{})
	}
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return failure(err)
	}
	return success("Accounts retrieved successfully", accounts, len(accounts))
}

func (s *AccountService) Create(ctx context.Context, a models.Account) Response {
	if strings.TrimSpace(a.ServiceName) == "" {
		return failure(invalid("service name is required"))
	}
	a.ID = uuid.NewString()
	return s.save(ctx, a, "created")
}

func (s *AccountService) Update(ctx context.Context, id string, a models.Account) Response {
	store := tenant.StoreFrom(ctx)
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return failure(err)
	}
	if !containsID(len(accounts), func(i int) string { return accounts[i].ID }, id) {
		return failure(fmt.Errorf("account %q: %w", id, repository.ErrNotFound))
	}
	if strings.TrimSpace(a.ServiceName) == "" {
		return failure(invalid("service name is required"))
	}
	a.ID = id
	return s.save(ctx, a, "updated")
}

func (s *AccountService) save(ctx context.Context, a models.Account, action string) Response {
	a.UpdatedAt = time.Now().UTC()
	if err := tenant.StoreFrom(ctx).SaveAccount(ctx, a); err != nil {
		return failure(err)
	}
	publish(ctx, s.notifier, "account", action, a.ID)
	return success("Account "+action+" successfully", a, 1)
}

func (s *AccountService) Delete(ctx context.Context, id string) Response {
	if err := tenant.StoreFrom(ctx).DeleteAccount(ctx, id); err != nil {
		return failure(err)
	}
	publish(ctx, s.notifier, "account", "deleted", id)
	return success("Account deleted successfully", nil, 1)
}

// LoanService lends devices and takes them back, keeping the device status
// in step with its open loans.
type LoanService struct {
	notifier Notifier
}

func NewLoanService(notifier Notifier) *LoanService {
	return &LoanService{notifier: orNop(notifier)}
}

func (s *LoanService) List(ctx context.Context) Response {
	store := tenant.StoreFrom(ctx)
	if !repository.IsConfigured(store) {
		return notConfigured([]models.Loan{})
	}
	loans, err := store.ListLoans(ctx)
	if err != nil {
		return failure(err)
	}
	return success("Loans retrieved successfully", loans, len(loans))
}

// Create lends a device. The loan date defaults to today in the
// application timezone.
func (s *LoanService) Create(ctx context.Context, loan models.Loan) Response {
	store := tenant.StoreFrom(ctx)
	if loan.DeviceID == "" || strings.TrimSpace(loan.Borrower) == "" {
		return failure(invalid("device id and borrower are required"))
	}
	if loan.Quantity <= 0 {
		loan.Quantity = 1
	}
	if loan.LoanDate == "" {
		loan.LoanDate = config.Today()
	}
	start, err := config.ParseDate(loan.LoanDate)
	if err != nil {
		return failure(invalid("loan date must be YYYY-MM-DD"))
	}
	if loan.DueDate != "" {
		due, err := config.ParseDate(loan.DueDate)
		if err != nil {
			return failure(invalid("due date must be YYYY-MM-DD"))
		}
		if due.Before(start) {
			return failure(invalid("due date is before the loan date"))
		}
	}

	device, err := store.GetDevice(ctx, loan.DeviceID)
	if err != nil {
		return failure(err)
	}
	switch device.Status {
	case models.DeviceStatusDisposed, models.DeviceStatusBroken:
		return failure(invalid("device %s cannot be lent while %s", device.ID, device.Status))
	}
	if loan.Quantity > device.Quantity {
		return failure(invalid("cannot lend %d of %d units", loan.Quantity, device.Quantity))
	}

	loan.ID = uuid.NewString()
	loan.CreatedAt = time.Now().UTC()
	if err := store.CreateLoan(ctx, loan, models.DeviceStatusInUse); err != nil {
		return failure(err)
	}
	publish(ctx, s.notifier, "loan", "created", loan.ID)
	publish(ctx, s.notifier, "device", "updated", loan.DeviceID)
	return success("Loan created successfully", loan, 1)
}

// Return closes a loan. The device goes back to Available unless another
// loan for it is still open.
func (s *LoanService) Return(ctx context.Context, loanID string) Response {
	store := tenant.StoreFrom(ctx)
	loan, err := store.GetLoan(ctx, loanID)
	if err != nil {
		return failure(err)
	}
	loans, err := store.ListLoans(ctx)
	if err != nil {
		return failure(err)
	}
	status := models.DeviceStatusAvailable
	for _, other := range loans {
		if other.ID != loan.ID && other.DeviceID == loan.DeviceID {
			status = models.DeviceStatusInUse
			break
		}
	}
	if err := store.ReturnLoan(ctx, loan.ID, loan.DeviceID, status); err != nil {
		return failure(err)
	}
	publish(ctx, s.notifier, "loan", "returned", loan.ID)
	publish(ctx, s.notifier, "device", "updated", loan.DeviceID)
	return success("Loan returned successfully", loan, 1)
}

func containsID(n int, id func(int) string, want string) bool {
	for i := 0; i < n; i++ {
		if id(i) == want {
			return true
		}
	}
	return false
}
