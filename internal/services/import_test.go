package services

import (
	"errors"
	"testing"

	"school_asset_server/internal/models"
	"school_asset_server/internal/tenant"
)

func TestMapImportRows(t *testing.T) {
	tests := []struct {
		name string
		row  ImportRow
		want models.Device
	}{
		{
			name: "canonical field names",
			row:  ImportRow{"id": "D1", "name": "Projector", "quantity": float64(3), "unitPrice": 1200.5, "installLocation": "Room A"},
			want: models.Device{ID: "D1", Name: "Projector", Quantity: 3, UnitPrice: 1200.5, InstallLocation: "Room A"},
		},
		{
			name: "localized headers and text numbers",
			row:  ImportRow{"名称": "ノートPC", "カテゴリ": "PC", "数量": "1,200", "単価": "¥45,000", "設置場所": "職員室", "状態": "使用中"},
			want: models.Device{Name: "ノートPC", Category: "PC", Quantity: 1200, UnitPrice: 45000, InstallLocation: "職員室", Status: models.DeviceStatusInUse},
		},
		{
			name: "spaced and snake case headers",
			row:  ImportRow{"Purchase Date": "2024-04-01", "pc_name": "LAB-01", " Model ": "X1", "Quantity": "3.0"},
			want: models.Device{PurchaseDate: "2024-04-01", PCName: "LAB-01", Model: "X1", Quantity: 3},
		},
		{
			name: "serial date and unknown headers",
			row:  ImportRow{"購入日": float64(45383), "name": "Camera", "備考": "ignored"},
			want: models.Device{PurchaseDate: "2024-04-01", Name: "Camera"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapImportRows([]ImportRow{tt.row})
			if err != nil {
				t.Fatalf("MapImportRows failed: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("Expected 1 device, got %d", len(got))
			}
			if got[0] != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got[0])
			}
		})
	}
}

func TestMapImportRowsSkipsBlankRows(t *testing.T) {
	got, err := MapImportRows([]ImportRow{
		{"name": "Tablet"},
		{"name": "  ", "数量": ""},
		{"備考": "no known header"},
	})
	if err != nil {
		t.Fatalf("MapImportRows failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Tablet" {
		t.Errorf("Expected only the Tablet row, got %+v", got)
	}
}

func TestMapImportRowsRejectsBadValues(t *testing.T) {
	cases := []ImportRow{
		{"name": "Tablet", "quantity": "three"},
		{"name": "Tablet", "数量": float64(-2)},
		{"name": "Tablet", "status": "borrowed?"},
	}
	for _, row := range cases {
		_, err := MapImportRows([]ImportRow{{"name": "OK"}, row})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected invalid input for %v, got %v", row, err)
		}
	}
}

func TestImportDevices(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b *testBackend) {
		ctx := b.ctx()
		inv := NewInventoryService(nil)

		res := inv.ImportDevices(ctx, []ImportRow{
			{"名称": "Projector", "数量": "2", "設置場所": "Room A"},
			{"name": "Speaker", "quantity": float64(1)},
		})
		if !res.Primary.Success || res.Primary.Count != 2 {
			t.Fatalf("Expected 2 devices imported, got %+v", res.Primary)
		}

		devices, _ := tenant.StoreFrom(ctx).ListDevices(ctx)
		if len(devices) != 2 {
			t.Fatalf("Expected 2 stored devices, got %d", len(devices))
		}
		var projector models.Device
		for _, d := range devices {
			if d.Name == "Projector" {
				projector = d
			}
		}
		if projector.Quantity != 2 || projector.AcquisitionDivision != models.DefaultAcquisitionDivision {
			t.Errorf("Expected quantity 2 with default division, got %+v", projector)
		}
		got := instancesOf(t, ctx, projector.ID)
		if len(got) != 1 || got[0].LocationName != "Room A" || got[0].Quantity != 2 {
			t.Errorf("Expected one Room A instance x2, got %+v", got)
		}

		empty := inv.ImportDevices(ctx, []ImportRow{{"備考": "nothing"}})
		if empty.Primary.Success || empty.Primary.Code != CodeInvalidInput {
			t.Errorf("Expected INVALID_INPUT for rows with no known headers, got %+v", empty.Primary)
		}
	})
}
