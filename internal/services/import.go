package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"school_asset_server/internal/models"
)

// ImportRow is one loosely typed row from a parsed spreadsheet or form,
// keyed by its header text.
type ImportRow map[string]interface{}

type importField int

const (
	fieldID importField = iota
	fieldCategory
	fieldModel
	fieldIP
	fieldStatus
	fieldPurchaseDate
	fieldGroupID
	fieldName
	fieldAcquisitionDivision
	fieldQuantity
	fieldUnitPrice
	fieldTotalAmount
	fieldServiceLifeChange
	fieldInstallLocation
	fieldOSVersion
	fieldWindowsPassword
	fieldUserName
	fieldPCName
)

// headerAliases maps normalized header text onto device fields. Keys are
// lowercased with spaces, underscores and hyphens removed, so "purchaseDate",
// "Purchase Date" and "purchase_date" all land on the same entry.
var headerAliases = map[string]importField{
	"id": fieldID, "管理番号": fieldID, "資産番号": fieldID,

	"category": fieldCategory, "カテゴリ": fieldCategory, "カテゴリー": fieldCategory,
	"種別": fieldCategory, "分類": fieldCategory,

	"model": fieldModel, "機種": fieldModel, "型番": fieldModel, "モデル": fieldModel,

	"ip": fieldIP, "ipaddress": fieldIP, "ipアドレス": fieldIP,

	"status": fieldStatus, "状態": fieldStatus, "ステータス": fieldStatus,

	"purchasedate": fieldPurchaseDate, "購入日": fieldPurchaseDate, "購入年月日": fieldPurchaseDate,
	"取得日": fieldPurchaseDate,

	"groupid": fieldGroupID, "group": fieldGroupID, "所属": fieldGroupID,
	"運用部署": fieldGroupID, "部署": fieldGroupID,

	"name": fieldName, "名称": fieldName, "品名": fieldName, "機器名": fieldName,

	"acquisitiondivision": fieldAcquisitionDivision, "取得区分": fieldAcquisitionDivision,

	"quantity": fieldQuantity, "qty": fieldQuantity, "数量": fieldQuantity, "台数": fieldQuantity,

	"unitprice": fieldUnitPrice, "単価": fieldUnitPrice,

	"totalamount": fieldTotalAmount, "total": fieldTotalAmount, "金額": fieldTotalAmount,
	"合計金額": fieldTotalAmount,

	"servicelifechange": fieldServiceLifeChange, "耐用年数変更": fieldServiceLifeChange,

	"installlocation": fieldInstallLocation, "location": fieldInstallLocation,
	"設置場所": fieldInstallLocation, "場所": fieldInstallLocation,

	"osversion": fieldOSVersion, "os": fieldOSVersion, "osバージョン": fieldOSVersion,

	"windowspassword": fieldWindowsPassword, "windowsパスワード": fieldWindowsPassword,
	"パスワード": fieldWindowsPassword,

	"username": fieldUserName, "user": fieldUserName, "使用者": fieldUserName,
	"ユーザー名": fieldUserName, "利用者": fieldUserName,

	"pcname": fieldPCName, "pc名": fieldPCName, "コンピュータ名": fieldPCName,
	"コンピューター名": fieldPCName,
}

var headerNoise = strings.NewReplacer(" ", "", "　", "", "_", "", "-", "")

func normalizeHeader(h string) string {
	return headerNoise.Replace(strings.ToLower(strings.TrimSpace(h)))
}

// Spreadsheet serial dates count days from this epoch.
var serialDateEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// MapImportRows converts header-keyed rows into devices. Unknown headers are
// ignored and rows with no recognised value are skipped. When two headers
// alias the same field the one sorting last wins. A numeric cell
// that cannot be read as a number fails the whole import with its row.
func MapImportRows(rows []ImportRow) ([]models.Device, error) {
	devices := make([]models.Device, 0, len(rows))
	for i, row := range rows {
		headers := make([]string, 0, len(row))
		for header := range row {
			headers = append(headers, header)
		}
		sort.Strings(headers)

		var d models.Device
		mapped := false
		for _, header := range headers {
			value := row[header]
			field, ok := headerAliases[normalizeHeader(header)]
			if !ok || value == nil {
				continue
			}
			text := strings.TrimSpace(cast.ToString(value))
			if text == "" {
				continue
			}
			if err := setImportField(&d, field, value, text); err != nil {
				return nil, invalid("row %d: %s: %v", i+1, header, err)
			}
			mapped = true
		}
		if mapped {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

func setImportField(d *models.Device, field importField, value interface{}, text string) error {
	switch field {
	case fieldID:
		d.ID = text
	case fieldCategory:
		d.Category = text
	case fieldModel:
		d.Model = text
	case fieldIP:
		d.IP = text
	case fieldStatus:
		st, ok := models.LookupDeviceStatus(text)
		if !ok {
			return fmt.Errorf("unknown status %q", text)
		}
		d.Status = st
	case fieldPurchaseDate:
		d.PurchaseDate = importDate(value, text)
	case fieldGroupID:
		d.GroupID = text
	case fieldName:
		d.Name = text
	case fieldAcquisitionDivision:
		d.AcquisitionDivision = text
	case fieldQuantity:
		n, err := importNumber(value)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("quantity must not be negative")
		}
		d.Quantity = int(n)
	case fieldUnitPrice:
		n, err := importNumber(value)
		if err != nil {
			return err
		}
		d.UnitPrice = n
	case fieldTotalAmount:
		n, err := importNumber(value)
		if err != nil {
			return err
		}
		d.TotalAmount = n
	case fieldServiceLifeChange:
		d.ServiceLifeChange = text
	case fieldInstallLocation:
		d.InstallLocation = text
	case fieldOSVersion:
		d.OSVersion = text
	case fieldWindowsPassword:
		d.WindowsPassword = text
	case fieldUserName:
		d.UserName = text
	case fieldPCName:
		d.PCName = text
	}
	return nil
}

var numberNoise = strings.NewReplacer(",", "", "¥", "", "￥", "", "円", "", "台", "", " ", "")

// importNumber accepts JSON numbers and text such as "3", "3.0", "1,200"
// or "¥12,000".
func importNumber(value interface{}) (float64, error) {
	if s, ok := value.(string); ok {
		value = numberNoise.Replace(strings.TrimSpace(s))
	}
	n, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("not a number: %v", value)
	}
	return n, nil
}

// importDate keeps text dates as written and turns spreadsheet serial
// numbers into YYYY-MM-DD.
func importDate(value interface{}, text string) string {
	switch value.(type) {
	case float64, float32, int, int64:
		days := cast.ToInt(value)
		if days > 0 {
			return serialDateEpoch.AddDate(0, 0, days).Format("2006-01-02")
		}
	}
	return text
}

// ImportDevices maps header-keyed rows and registers the result in bulk.
func (s *InventoryService) ImportDevices(ctx context.Context, rows []ImportRow) SyncResult {
	devices, err := MapImportRows(rows)
	if err != nil {
		return SyncResult{Primary: failure(err)}
	}
	if len(devices) == 0 {
		return SyncResult{Primary: failure(invalid("no importable rows"))}
	}
	return s.BulkRegisterDevices(ctx, devices)
}
