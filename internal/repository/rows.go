package repository

import (
	"strconv"
	"strings"
	"time"

	"school_asset_server/internal/models"
)

// Sheet headers. Column order is positional and fixed.
var (
	deviceHeader = []string{
		"id", "category", "model", "ip", "status", "purchaseDate", "groupId", "name",
		"acquisitionDivision", "quantity", "unitPrice", "totalAmount", "serviceLifeChange",
		"installLocation", "osVersion", "windowsPassword", "userName", "pcName",
	}
	instanceHeader     = []string{"id", "deviceId", "locationId", "locationName", "quantity", "notes", "updatedAt"}
	locationHeader     = []string{"id", "name", "pinX", "pinY", "width", "height", "color", "type", "mapId"}
	locationNameHeader = []string{"id", "name"}
	configHeader       = []string{"key", "value"}
	softwareHeader     = []string{"id", "name", "version", "licenseKey", "licenseCount", "expiryDate", "notes", "updatedAt"}
	accountHeader      = []string{"id", "serviceName", "loginId", "password", "owner", "notes", "updatedAt"}
	loanHeader         = []string{"id", "deviceId", "borrower", "quantity", "loanDate", "dueDate", "notes", "createdAt"}
)

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// parseInt accepts "3", "3.0" and "1,200".
func parseInt(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseOptionalFloat(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	f := parseFloat(s)
	return &f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, strings.TrimSpace(s))
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deviceToRow(d models.Device) []string {
	return []string{
		d.ID, d.Category, d.Model, d.IP, string(d.Status), d.PurchaseDate, d.GroupID, d.Name,
		d.AcquisitionDivision, strconv.Itoa(d.Quantity), formatFloat(d.UnitPrice), formatFloat(d.TotalAmount),
		d.ServiceLifeChange, d.InstallLocation, d.OSVersion, d.WindowsPassword, d.UserName, d.PCName,
	}
}

func rowToDevice(row []string) models.Device {
	return models.Device{
		ID:                  cell(row, 0),
		Category:            cell(row, 1),
		Model:               cell(row, 2),
		IP:                  cell(row, 3),
		Status:              models.ParseDeviceStatus(cell(row, 4)),
		PurchaseDate:        cell(row, 5),
		GroupID:             cell(row, 6),
		Name:                cell(row, 7),
		AcquisitionDivision: cell(row, 8),
		Quantity:            parseInt(cell(row, 9)),
		UnitPrice:           parseFloat(cell(row, 10)),
		TotalAmount:         parseFloat(cell(row, 11)),
		ServiceLifeChange:   cell(row, 12),
		InstallLocation:     cell(row, 13),
		OSVersion:           cell(row, 14),
		WindowsPassword:     cell(row, 15),
		UserName:            cell(row, 16),
		PCName:              cell(row, 17),
	}
}

func instanceToRow(i models.DeviceInstance) []string {
	return []string{i.ID, i.DeviceID, i.LocationID, i.LocationName, strconv.Itoa(i.Quantity), i.Notes, formatTime(i.UpdatedAt)}
}

func rowToInstance(row []string) models.DeviceInstance {
	return models.DeviceInstance{
		ID:           cell(row, 0),
		DeviceID:     cell(row, 1),
		LocationID:   cell(row, 2),
		LocationName: cell(row, 3),
		Quantity:     parseInt(cell(row, 4)),
		Notes:        cell(row, 5),
		UpdatedAt:    parseTime(cell(row, 6)),
	}
}

func locationToRow(l models.Location) []string {
	return []string{
		l.ID, l.Name, formatFloat(l.PinX), formatFloat(l.PinY),
		formatOptionalFloat(l.Width), formatOptionalFloat(l.Height),
		l.Color, string(l.Type), l.MapID,
	}
}

func rowToLocation(row []string) models.Location {
	return models.Location{
		ID:     cell(row, 0),
		Name:   cell(row, 1),
		PinX:   parseFloat(cell(row, 2)),
		PinY:   parseFloat(cell(row, 3)),
		Width:  parseOptionalFloat(cell(row, 4)),
		Height: parseOptionalFloat(cell(row, 5)),
		Color:  cell(row, 6),
		Type:   models.LocationType(cell(row, 7)),
		MapID:  cell(row, 8),
	}
}

func softwareToRow(s models.Software) []string {
	return []string{s.ID, s.Name, s.Version, s.LicenseKey, strconv.Itoa(s.LicenseCount), s.ExpiryDate, s.Notes, formatTime(s.UpdatedAt)}
}

func rowToSoftware(row []string) models.Software {
	return models.Software{
		ID:           cell(row, 0),
		Name:         cell(row, 1),
		Version:      cell(row, 2),
		LicenseKey:   cell(row, 3),
		LicenseCount: parseInt(cell(row, 4)),
		ExpiryDate:   cell(row, 5),
		Notes:        cell(row, 6),
		UpdatedAt:    parseTime(cell(row, 7)),
	}
}

func accountToRow(a models.Account) []string {
	return []string{a.ID, a.ServiceName, a.LoginID, a.Password, a.Owner, a.Notes, formatTime(a.UpdatedAt)}
}

func rowToAccount(row []string) models.Account {
	return models.Account{
		ID:          cell(row, 0),
		ServiceName: cell(row, 1),
		LoginID:     cell(row, 2),
		Password:    cell(row, 3),
		Owner:       cell(row, 4),
		Notes:       cell(row, 5),
		UpdatedAt:   parseTime(cell(row, 6)),
	}
}

func loanToRow(l models.Loan) []string {
	return []string{l.ID, l.DeviceID, l.Borrower, strconv.Itoa(l.Quantity), l.LoanDate, l.DueDate, l.Notes, formatTime(l.CreatedAt)}
}

func rowToLoan(row []string) models.Loan {
	return models.Loan{
		ID:        cell(row, 0),
		DeviceID:  cell(row, 1),
		Borrower:  cell(row, 2),
		Quantity:  parseInt(cell(row, 3)),
		LoanDate:  cell(row, 4),
		DueDate:   cell(row, 5),
		Notes:     cell(row, 6),
		CreatedAt: parseTime(cell(row, 7)),
	}
}
