package models

import "time"

// Software is a licensed software title tracked by the school.
type Software struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	LicenseKey   string    `json:"licenseKey"`
	LicenseCount int       `json:"licenseCount"`
	ExpiryDate   string    `json:"expiryDate"`
	Notes        string    `json:"notes"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Account is a service login managed by IT staff.
type Account struct {
	ID          string    `json:"id"`
	ServiceName string    `json:"serviceName"`
	LoginID     string    `json:"loginId"`
	Password    string    `json:"password"`
	Owner       string    `json:"owner"`
	Notes       string    `json:"notes"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Loan records a device lent to a borrower.
type Loan struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"deviceId"`
	Borrower  string    `json:"borrower"`
	Quantity  int       `json:"quantity"`
	LoanDate  string    `json:"loanDate"`
	DueDate   string    `json:"dueDate"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}
