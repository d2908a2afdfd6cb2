package repository

import (
	"fmt"
	"time"

	"school_asset_server/internal/backend/docstore"
	"school_asset_server/internal/models"
)

// Documents are untyped; these readers tolerate the numeric types Firestore
// hands back (int64, float64) as well as strings written by older clients.

func str(r docstore.Record, key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func num(r docstore.Record, key string) float64 {
	switch v := r[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		return parseFloat(v)
	}
	return 0
}

func optNum(r docstore.Record, key string) *float64 {
	if v, ok := r[key]; !ok || v == nil || v == "" {
		return nil
	}
	f := num(r, key)
	return &f
}

func timestamp(r docstore.Record, key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		return parseTime(v)
	}
	return time.Time{}
}

func deviceToRecord(d models.Device) map[string]interface{} {
	return map[string]interface{}{
		"id":                  d.ID,
		"category":            d.Category,
		"model":               d.Model,
		"ip":                  d.IP,
		"status":              string(d.Status),
		"purchaseDate":        d.PurchaseDate,
		"groupId":             d.GroupID,
		"name":                d.Name,
		"acquisitionDivision": d.AcquisitionDivision,
		"quantity":            d.Quantity,
		"unitPrice":           d.UnitPrice,
		"totalAmount":         d.TotalAmount,
		"serviceLifeChange":   d.ServiceLifeChange,
		"installLocation":     d.InstallLocation,
		"osVersion":           d.OSVersion,
		"windowsPassword":     d.WindowsPassword,
		"userName":            d.UserName,
		"pcName":              d.PCName,
	}
}

func recordToDevice(r docstore.Record) models.Device {
	return models.Device{
		ID:                  r.ID(),
		Category:            str(r, "category"),
		Model:               str(r, "model"),
		IP:                  str(r, "ip"),
		Status:              models.ParseDeviceStatus(str(r, "status")),
		PurchaseDate:        str(r, "purchaseDate"),
		GroupID:             str(r, "groupId"),
		Name:                str(r, "name"),
		AcquisitionDivision: str(r, "acquisitionDivision"),
		Quantity:            int(num(r, "quantity")),
		UnitPrice:           num(r, "unitPrice"),
		TotalAmount:         num(r, "totalAmount"),
		ServiceLifeChange:   str(r, "serviceLifeChange"),
		InstallLocation:     str(r, "installLocation"),
		OSVersion:           str(r, "osVersion"),
		WindowsPassword:     str(r, "windowsPassword"),
		UserName:            str(r, "userName"),
		PCName:              str(r, "pcName"),
	}
}

func instanceToRecord(i models.DeviceInstance) map[string]interface{} {
	return map[string]interface{}{
		"id":           i.ID,
		"deviceId":     i.DeviceID,
		"locationId":   i.LocationID,
		"locationName": i.LocationName,
		"quantity":     i.Quantity,
		"notes":        i.Notes,
		"updatedAt":    i.UpdatedAt,
	}
}

func recordToInstance(r docstore.Record) models.DeviceInstance {
	return models.DeviceInstance{
		ID:           r.ID(),
		DeviceID:     str(r, "deviceId"),
		LocationID:   str(r, "locationId"),
		LocationName: str(r, "locationName"),
		Quantity:     int(num(r, "quantity")),
		Notes:        str(r, "notes"),
		UpdatedAt:    timestamp(r, "updatedAt"),
	}
}

func locationToRecord(l models.Location) map[string]interface{} {
	rec := map[string]interface{}{
		"id":     l.ID,
		"name":   l.Name,
		"pinX":   l.PinX,
		"pinY":   l.PinY,
		"color":  l.Color,
		"type":   string(l.Type),
		"mapId":  l.MapID,
		"width":  nil,
		"height": nil,
	}
	if l.Width != nil {
		rec["width"] = *l.Width
	}
	if l.Height != nil {
		rec["height"] = *l.Height
	}
	return rec
}

func recordToLocation(r docstore.Record) models.Location {
	return models.Location{
		ID:     r.ID(),
		Name:   str(r, "name"),
		PinX:   num(r, "pinX"),
		PinY:   num(r, "pinY"),
		Width:  optNum(r, "width"),
		Height: optNum(r, "height"),
		Color:  str(r, "color"),
		Type:   models.LocationType(str(r, "type")),
		MapID:  str(r, "mapId"),
	}
}

func softwareToRecord(s models.Software) map[string]interface{} {
	return map[string]interface{}{
		"id":           s.ID,
		"name":         s.Name,
		"version":      s.Version,
		"licenseKey":   s.LicenseKey,
		"licenseCount": s.LicenseCount,
		"expiryDate":   s.ExpiryDate,
		"notes":        s.Notes,
		"updatedAt":    s.UpdatedAt,
	}
}

func recordToSoftware(r docstore.Record) models.Software {
	return models.Software{
		ID:           r.ID(),
		Name:         str(r, "name"),
		Version:      str(r, "version"),
		LicenseKey:   str(r, "licenseKey"),
		LicenseCount: int(num(r, "licenseCount")),
		ExpiryDate:   str(r, "expiryDate"),
		Notes:        str(r, "notes"),
		UpdatedAt:    timestamp(r, "updatedAt"),
	}
}

func accountToRecord(a models.Account) map[string]interface{} {
	return map[string]interface{}{
		"id":          a.ID,
		"serviceName": a.ServiceName,
		"loginId":     a.LoginID,
		"password":    a.Password,
		"owner":       a.Owner,
		"notes":       a.Notes,
		"updatedAt":   a.UpdatedAt,
	}
}

func recordToAccount(r docstore.Record) models.Account {
	return models.Account{
		ID:          r.ID(),
		ServiceName: str(r, "serviceName"),
		LoginID:     str(r, "loginId"),
		Password:    str(r, "password"),
		Owner:       str(r, "owner"),
		Notes:       str(r, "notes"),
		UpdatedAt:   timestamp(r, "updatedAt"),
	}
}

func loanToRecord(l models.Loan) map[string]interface{} {
	return map[string]interface{}{
		"id":        l.ID,
		"deviceId":  l.DeviceID,
		"borrower":  l.Borrower,
		"quantity":  l.Quantity,
		"loanDate":  l.LoanDate,
		"dueDate":   l.DueDate,
		"notes":     l.Notes,
		"createdAt": l.CreatedAt,
	}
}

func recordToLoan(r docstore.Record) models.Loan {
	return models.Loan{
		ID:        r.ID(),
		DeviceID:  str(r, "deviceId"),
		Borrower:  str(r, "borrower"),
		Quantity:  int(num(r, "quantity")),
		LoanDate:  str(r, "loanDate"),
		DueDate:   str(r, "dueDate"),
		Notes:     str(r, "notes"),
		CreatedAt: timestamp(r, "createdAt"),
	}
}
