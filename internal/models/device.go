package models

import (
	"strings"
)

// DeviceStatus represents the lifecycle state of a device
type DeviceStatus string

const (
	DeviceStatusAvailable   DeviceStatus = "Available"
	DeviceStatusInUse       DeviceStatus = "In Use"
	DeviceStatusMaintenance DeviceStatus = "Maintenance"
	DeviceStatusDisposed    DeviceStatus = "Lost/Disposed"
	DeviceStatusBroken      DeviceStatus = "Broken"
)

var statusLabels = map[string]DeviceStatus{
	"available":     DeviceStatusAvailable,
	"利用可能":          DeviceStatusAvailable,
	"in use":        DeviceStatusInUse,
	"使用中":           DeviceStatusInUse,
	"maintenance":   DeviceStatusMaintenance,
	"メンテナンス中":       DeviceStatusMaintenance,
	"修理中":           DeviceStatusMaintenance,
	"lost/disposed": DeviceStatusDisposed,
	"紛失・廃棄":         DeviceStatusDisposed,
	"廃棄":            DeviceStatusDisposed,
	"broken":        DeviceStatusBroken,
	"故障":            DeviceStatusBroken,
}

// LookupDeviceStatus maps canonical or localized labels onto a DeviceStatus.
func LookupDeviceStatus(label string) (DeviceStatus, bool) {
	s, ok := statusLabels[strings.ToLower(strings.TrimSpace(label))]
	return s, ok
}

// ParseDeviceStatus is LookupDeviceStatus for stored rows: unknown or empty
// labels fall back to Available.
func ParseDeviceStatus(label string) DeviceStatus {
	if s, ok := LookupDeviceStatus(label); ok {
		return s
	}
	return DeviceStatusAvailable
}

// DefaultAcquisitionDivision is applied to registered devices with no division.
const DefaultAcquisitionDivision = "公費"

// PCCategory marks devices whose OS/user/PC fields are meaningful.
const PCCategory = "PC"

// Device is a physical asset type owned by the school.
// Field order matches the Devices sheet columns A through R.
type Device struct {
	ID                  string       `json:"id"`
	Category            string       `json:"category"`
	Model               string       `json:"model"`
	IP                  string       `json:"ip"`
	Status              DeviceStatus `json:"status"`
	PurchaseDate        string       `json:"purchaseDate"`
	GroupID             string       `json:"groupId"`
	Name                string       `json:"name"`
	AcquisitionDivision string       `json:"acquisitionDivision"`
	Quantity            int          `json:"quantity"`
	UnitPrice           float64      `json:"unitPrice"`
	TotalAmount         float64      `json:"totalAmount"`
	ServiceLifeChange   string       `json:"serviceLifeChange"`
	InstallLocation     string       `json:"installLocation"`
	OSVersion           string       `json:"osVersion"`
	WindowsPassword     string       `json:"windowsPassword"`
	UserName            string       `json:"userName"`
	PCName              string       `json:"pcName"`
}

// IsPC reports whether the PC-only fields apply to this device.
func (d *Device) IsPC() bool {
	return strings.EqualFold(d.Category, PCCategory)
}

// ApplyDefaults fills the registration defaults for fields left empty.
func (d *Device) ApplyDefaults() {
	if d.Status == "" {
		d.Status = DeviceStatusAvailable
	} else {
		d.Status = ParseDeviceStatus(string(d.Status))
	}
	if d.Quantity <= 0 {
		d.Quantity = 1
	}
	if strings.TrimSpace(d.AcquisitionDivision) == "" {
		d.AcquisitionDivision = DefaultAcquisitionDivision
	}
	if d.TotalAmount == 0 && d.UnitPrice > 0 {
		d.TotalAmount = d.UnitPrice * float64(d.Quantity)
	}
}

// DevicePatch is a partial device update. A nil field keeps the current
// value; a non-nil empty string clears it.
type DevicePatch struct {
	Category            *string       `json:"category,omitempty"`
	Model               *string       `json:"model,omitempty"`
	IP                  *string       `json:"ip,omitempty"`
	Status              *DeviceStatus `json:"status,omitempty"`
	PurchaseDate        *string       `json:"purchaseDate,omitempty"`
	GroupID             *string       `json:"groupId,omitempty"`
	Name                *string       `json:"name,omitempty"`
	AcquisitionDivision *string       `json:"acquisitionDivision,omitempty"`
	Quantity            *int          `json:"quantity,omitempty"`
	UnitPrice           *float64      `json:"unitPrice,omitempty"`
	TotalAmount         *float64      `json:"totalAmount,omitempty"`
	ServiceLifeChange   *string       `json:"serviceLifeChange,omitempty"`
	InstallLocation     *string       `json:"installLocation,omitempty"`
	OSVersion           *string       `json:"osVersion,omitempty"`
	WindowsPassword     *string       `json:"windowsPassword,omitempty"`
	UserName            *string       `json:"userName,omitempty"`
	PCName              *string       `json:"pcName,omitempty"`
}

// Apply merges the patch into d.
func (p *DevicePatch) Apply(d *Device) {
	if p == nil {
		return
	}
	setString(&d.Category, p.Category)
	setString(&d.Model, p.Model)
	setString(&d.IP, p.IP)
	if p.Status != nil {
		d.Status = *p.Status
	}
	setString(&d.PurchaseDate, p.PurchaseDate)
	setString(&d.GroupID, p.GroupID)
	setString(&d.Name, p.Name)
	setString(&d.AcquisitionDivision, p.AcquisitionDivision)
	if p.Quantity != nil {
		d.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		d.UnitPrice = *p.UnitPrice
	}
	if p.TotalAmount != nil {
		d.TotalAmount = *p.TotalAmount
	}
	setString(&d.ServiceLifeChange, p.ServiceLifeChange)
	setString(&d.InstallLocation, p.InstallLocation)
	setString(&d.OSVersion, p.OSVersion)
	setString(&d.WindowsPassword, p.WindowsPassword)
	setString(&d.UserName, p.UserName)
	setString(&d.PCName, p.PCName)
}

// Fields returns the patch as a field map keyed by JSON name, holding only
// the fields that were set.
func (p *DevicePatch) Fields() map[string]interface{} {
	out := map[string]interface{}{}
	if p == nil {
		return out
	}
	putString(out, "category", p.Category)
	putString(out, "model", p.Model)
	putString(out, "ip", p.IP)
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	putString(out, "purchaseDate", p.PurchaseDate)
	putString(out, "groupId", p.GroupID)
	putString(out, "name", p.Name)
	putString(out, "acquisitionDivision", p.AcquisitionDivision)
	if p.Quantity != nil {
		out["quantity"] = *p.Quantity
	}
	if p.UnitPrice != nil {
		out["unitPrice"] = *p.UnitPrice
	}
	if p.TotalAmount != nil {
		out["totalAmount"] = *p.TotalAmount
	}
	putString(out, "serviceLifeChange", p.ServiceLifeChange)
	putString(out, "installLocation", p.InstallLocation)
	putString(out, "osVersion", p.OSVersion)
	putString(out, "windowsPassword", p.WindowsPassword)
	putString(out, "userName", p.UserName)
	putString(out, "pcName", p.PCName)
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func putString(m map[string]interface{}, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

// StringPtr is a small helper for building patches.
func StringPtr(s string) *string { return &s }

// IntPtr is a small helper for building patches.
func IntPtr(i int) *int { return &i }
