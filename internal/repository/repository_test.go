package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"school_asset_server/internal/backend/docstore"
	"school_asset_server/internal/backend/sheetstore"
	"school_asset_server/internal/models"
)

type backendCase struct {
	name  string
	store func() Store
}

var backends = []backendCase{
	{"sheets", func() Store { return NewSheetStore(sheetstore.NewMemory()) }},
	{"firebase", func() Store { return NewDocStore(docstore.NewMemory()) }},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.store())
		})
	}
}

func sampleDevice(id string) models.Device {
	d := models.Device{ID: id, Category: "PC", Model: "ThinkPad", Name: "Laptop " + id, Quantity: 5, UnitPrice: 1200}
	d.ApplyDefaults()
	return d
}

func TestDeviceCRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		devices, err := s.ListDevices(ctx)
		if err != nil {
			t.Fatalf("ListDevices on empty store failed: %v", err)
		}
		if len(devices) != 0 {
			t.Errorf("Expected no devices, got %d", len(devices))
		}

		if err := s.CreateDevices(ctx, []models.Device{sampleDevice("D1"), sampleDevice("D2")}); err != nil {
			t.Fatalf("CreateDevices failed: %v", err)
		}

		d, err := s.GetDevice(ctx, "D1")
		if err != nil {
			t.Fatalf("GetDevice failed: %v", err)
		}
		if d.AcquisitionDivision != models.DefaultAcquisitionDivision {
			t.Errorf("Expected division %q, got %q", models.DefaultAcquisitionDivision, d.AcquisitionDivision)
		}
		if d.Quantity != 5 || d.TotalAmount != 6000 {
			t.Errorf("Expected quantity 5 total 6000, got %d %v", d.Quantity, d.TotalAmount)
		}

		status := models.DeviceStatusInUse
		updated, err := s.UpdateDevice(ctx, "D1", &models.DevicePatch{Status: &status, InstallLocation: models.StringPtr("Room 101")})
		if err != nil {
			t.Fatalf("UpdateDevice failed: %v", err)
		}
		if updated.Status != models.DeviceStatusInUse || updated.Model != "ThinkPad" {
			t.Errorf("Expected patched status with model kept, got %+v", updated)
		}
		reread, _ := s.GetDevice(ctx, "D1")
		if reread.InstallLocation != "Room 101" {
			t.Errorf("Expected install location to persist, got %q", reread.InstallLocation)
		}

		if _, err := s.UpdateDevice(ctx, "missing", &models.DevicePatch{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound updating missing device, got %v", err)
		}
		if _, err := s.GetDevice(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}

		n, err := s.DeleteDevices(ctx, []string{"D1", "nope"})
		if err != nil {
			t.Fatalf("DeleteDevices failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 deleted, got %d", n)
		}

		n, err = s.DeleteAllDevices(ctx)
		if err != nil {
			t.Fatalf("DeleteAllDevices failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 removed by delete-all, got %d", n)
		}
		devices, _ = s.ListDevices(ctx)
		if len(devices) != 0 {
			t.Errorf("Expected empty store after delete-all, got %d", len(devices))
		}
	})
}

func TestInstancesAndRename(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.CreateDevices(ctx, []models.Device{sampleDevice("D1")}); err != nil {
			t.Fatalf("CreateDevices failed: %v", err)
		}
		instances := []models.DeviceInstance{
			{ID: "I1", DeviceID: "D1", LocationID: "L1", LocationName: "Room A", Quantity: 2},
			{ID: "I2", DeviceID: "D1", LocationID: "L2", LocationName: "Room B", Quantity: 3},
			{ID: "I3", DeviceID: "D9", LocationID: "L1", LocationName: "Room A", Quantity: 1},
		}
		if err := s.CreateInstances(ctx, instances); err != nil {
			t.Fatalf("CreateInstances failed: %v", err)
		}

		byDevice, err := s.ListInstancesByDevice(ctx, "D1")
		if err != nil {
			t.Fatalf("ListInstancesByDevice failed: %v", err)
		}
		if len(byDevice) != 2 {
			t.Errorf("Expected 2 instances for D1, got %d", len(byDevice))
		}

		changed, err := s.RenameInstanceLocation(ctx, "L1", "Science Lab")
		if err != nil {
			t.Fatalf("RenameInstanceLocation failed: %v", err)
		}
		if changed != 2 {
			t.Errorf("Expected 2 renamed instances, got %d", changed)
		}
		all, _ := s.ListInstances(ctx)
		for _, inst := range all {
			if inst.LocationID == "L1" && inst.LocationName != "Science Lab" {
				t.Errorf("Expected instance %s renamed, got %q", inst.ID, inst.LocationName)
			}
			if inst.LocationID == "L2" && inst.LocationName != "Room B" {
				t.Errorf("Expected instance %s untouched, got %q", inst.ID, inst.LocationName)
			}
		}

		again, _ := s.RenameInstanceLocation(ctx, "L1", "Science Lab")
		if again != 0 {
			t.Errorf("Expected idempotent rename to change nothing, got %d", again)
		}

		if err := s.DeleteInstances(ctx, []string{"I1", "I3"}); err != nil {
			t.Fatalf("DeleteInstances failed: %v", err)
		}
		all, _ = s.ListInstances(ctx)
		if len(all) != 1 || all[0].ID != "I2" {
			t.Errorf("Expected only I2 to remain, got %+v", all)
		}
	})
}

func TestApplyDistribution(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		s.CreateDevices(ctx, []models.Device{sampleDevice("D1")})
		s.CreateInstances(ctx, []models.DeviceInstance{{ID: "old", DeviceID: "D1", LocationID: "L1", Quantity: 5}})

		patch := &models.DevicePatch{InstallLocation: models.StringPtr("Room A, Room B")}
		create := []models.DeviceInstance{
			{ID: "n1", DeviceID: "D1", LocationID: "L1", LocationName: "Room A", Quantity: 3},
			{ID: "n2", DeviceID: "D1", LocationID: "L2", LocationName: "Room B", Quantity: 2},
		}
		if err := s.ApplyDistribution(ctx, "D1", patch, []string{"old"}, create); err != nil {
			t.Fatalf("ApplyDistribution failed: %v", err)
		}
		got, _ := s.ListInstancesByDevice(ctx, "D1")
		if len(got) != 2 {
			t.Fatalf("Expected 2 instances, got %d", len(got))
		}
		d, _ := s.GetDevice(ctx, "D1")
		if d.InstallLocation != "Room A, Room B" {
			t.Errorf("Expected device install location patched, got %q", d.InstallLocation)
		}
	})
}

func TestApplyDistributionIsAtomicOnDocuments(t *testing.T) {
	ctx := context.Background()
	mem := docstore.NewMemory()
	s := NewDocStore(mem)
	s.CreateInstances(ctx, []models.DeviceInstance{{ID: "keep", DeviceID: "ghost", Quantity: 1}})

	err := s.ApplyDistribution(ctx, "ghost", &models.DevicePatch{}, []string{"keep"}, []models.DeviceInstance{{ID: "new", DeviceID: "ghost"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for a missing device, got %v", err)
	}
	all, _ := s.ListInstances(ctx)
	if len(all) != 1 || all[0].ID != "keep" {
		t.Errorf("Expected the failed batch to leave instances untouched, got %+v", all)
	}
}

func TestLocationsAndNames(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		w, h := 10.0, 20.0
		zone := models.Location{ID: "L1", Name: "Room A", PinX: 5, PinY: 7.5, Width: &w, Height: &h, Type: models.LocationTypeClassroom, MapID: "default"}
		pin := models.Location{ID: "L2", Name: "Cart 1", PinX: 50, PinY: 50, Type: models.LocationTypeCart, MapID: "default"}
		for _, l := range []models.Location{zone, pin} {
			if err := s.SaveLocation(ctx, l); err != nil {
				t.Fatalf("SaveLocation failed: %v", err)
			}
		}

		got, err := s.GetLocation(ctx, "L1")
		if err != nil {
			t.Fatalf("GetLocation failed: %v", err)
		}
		if !got.IsZone() || *got.Width != 10 || got.PinY != 7.5 {
			t.Errorf("Expected zone geometry to round-trip, got %+v", got)
		}
		got, _ = s.GetLocation(ctx, "L2")
		if got.IsZone() {
			t.Errorf("Expected pin to have no width/height")
		}

		zone.Name = "Room A2"
		s.SaveLocation(ctx, zone)
		all, _ := s.ListLocations(ctx)
		if len(all) != 2 {
			t.Errorf("Expected upsert to keep 2 locations, got %d", len(all))
		}

		if err := s.SetLocationName(ctx, "L1", "Music Room"); err != nil {
			t.Fatalf("SetLocationName failed: %v", err)
		}
		names, _ := s.ListLocationNames(ctx)
		if names["L1"] != "Music Room" {
			t.Errorf("Expected alias Music Room, got %q", names["L1"])
		}

		if err := s.DeleteLocation(ctx, "L1"); err != nil {
			t.Fatalf("DeleteLocation failed: %v", err)
		}
		names, _ = s.ListLocationNames(ctx)
		if _, ok := names["L1"]; ok {
			t.Errorf("Expected alias removed with the location")
		}
		if err := s.DeleteLocation(ctx, "L1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestMapImageRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, found, err := s.LoadMapImage(ctx, "default"); err != nil || found {
			t.Fatalf("Expected no image yet, got found=%v err=%v", found, err)
		}

		big := "data:image/png;base64," + strings.Repeat("QUJD", 250000)
		if err := s.SaveMapImage(ctx, "default", big); err != nil {
			t.Fatalf("SaveMapImage failed: %v", err)
		}
		image, found, err := s.LoadMapImage(ctx, "default")
		if err != nil || !found {
			t.Fatalf("LoadMapImage failed: found=%v err=%v", found, err)
		}
		if image != big {
			t.Errorf("Expected image of %d bytes back, got %d", len(big), len(image))
		}

		small := "data:image/png;base64,AAAA"
		if err := s.SaveMapImage(ctx, "default", small); err != nil {
			t.Fatalf("Second SaveMapImage failed: %v", err)
		}
		image, _, err = s.LoadMapImage(ctx, "default")
		if err != nil {
			t.Fatalf("LoadMapImage after shrink failed: %v", err)
		}
		if image != small {
			t.Errorf("Expected stale chunks ignored, got %d bytes", len(image))
		}

		other, found, _ := s.LoadMapImage(ctx, "floor2")
		if found || other != "" {
			t.Errorf("Expected maps to be independent")
		}
	})
}

func TestZoneListRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if _, found, _ := s.LoadZoneList(ctx, ""); found {
			t.Fatalf("Expected no zone list yet")
		}
		zones := []models.Zone{
			{ID: "z1", Name: "Room A", X: 1, Y: 2, Width: 10, Height: 10},
			{ID: "z2", Name: "Room B", X: 30, Y: 2, Width: 10, Height: 10},
		}
		if err := s.SaveZoneList(ctx, "", zones); err != nil {
			t.Fatalf("SaveZoneList failed: %v", err)
		}
		got, found, err := s.LoadZoneList(ctx, models.DefaultMapID)
		if err != nil || !found {
			t.Fatalf("LoadZoneList failed: found=%v err=%v", found, err)
		}
		if len(got) != 2 || got[1].Name != "Room B" {
			t.Errorf("Expected zone order preserved, got %+v", got)
		}
	})
}

func TestLoansUpdateDeviceStatus(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		s.CreateDevices(ctx, []models.Device{sampleDevice("D1")})

		loan := models.Loan{ID: "LN1", DeviceID: "D1", Borrower: "Tanaka", Quantity: 1, LoanDate: "2026-04-01"}
		if err := s.CreateLoan(ctx, loan, models.DeviceStatusInUse); err != nil {
			t.Fatalf("CreateLoan failed: %v", err)
		}
		d, _ := s.GetDevice(ctx, "D1")
		if d.Status != models.DeviceStatusInUse {
			t.Errorf("Expected device In Use after loan, got %s", d.Status)
		}

		if err := s.ReturnLoan(ctx, "LN1", "D1", models.DeviceStatusAvailable); err != nil {
			t.Fatalf("ReturnLoan failed: %v", err)
		}
		d, _ = s.GetDevice(ctx, "D1")
		if d.Status != models.DeviceStatusAvailable {
			t.Errorf("Expected device Available after return, got %s", d.Status)
		}
		if _, err := s.GetLoan(ctx, "LN1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected loan gone, got %v", err)
		}
	})
}

func TestSoftwareAndAccounts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		s.SaveSoftware(ctx, models.Software{ID: "S1", Name: "Office", LicenseCount: 40})
		s.SaveAccount(ctx, models.Account{ID: "A1", ServiceName: "Mail", LoginID: "admin"})

		sw, _ := s.ListSoftware(ctx)
		if len(sw) != 1 || sw[0].LicenseCount != 40 {
			t.Errorf("Expected one software title with 40 licenses, got %+v", sw)
		}
		if err := s.DeleteAccount(ctx, "A1"); err != nil {
			t.Errorf("DeleteAccount failed: %v", err)
		}
		if err := s.DeleteSoftware(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSheetAppendIsChunked(t *testing.T) {
	ctx := context.Background()
	mem := sheetstore.NewMemory()
	s := NewSheetStore(mem)

	devices := make([]models.Device, 1200)
	for i := range devices {
		devices[i] = sampleDevice(fmt.Sprintf("D%04d", i))
	}
	if err := s.CreateDevices(ctx, devices); err != nil {
		t.Fatalf("CreateDevices failed: %v", err)
	}
	if mem.Calls["Append"] != 3 {
		t.Errorf("Expected 3 append calls for 1200 rows, got %d", mem.Calls["Append"])
	}
	all, _ := s.ListDevices(ctx)
	if len(all) != 1200 {
		t.Errorf("Expected 1200 devices, got %d", len(all))
	}
}

func TestSheetRowRemovalSurvivesFailedWrite(t *testing.T) {
	ctx := context.Background()
	mem := sheetstore.NewMemory()
	s := NewSheetStore(mem)
	if err := s.CreateDevices(ctx, []models.Device{sampleDevice("D1"), sampleDevice("D2"), sampleDevice("D3")}); err != nil {
		t.Fatalf("CreateDevices failed: %v", err)
	}

	mem.FailOn["Update"] = Devices
	if _, err := s.DeleteDevices(ctx, []string{"D2"}); err == nil {
		t.Fatalf("Expected delete to fail while writes fail")
	}
	mem.FailOn = map[string]string{}

	all, _ := s.ListDevices(ctx)
	if len(all) != 3 {
		t.Fatalf("Expected all 3 devices kept after failed delete, got %d", len(all))
	}

	n, err := s.DeleteDevices(ctx, []string{"D2"})
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 deleted, got %d %v", n, err)
	}
	all, _ = s.ListDevices(ctx)
	if len(all) != 2 || all[0].ID != "D1" || all[1].ID != "D3" {
		t.Fatalf("Expected D1 and D3 left, got %+v", all)
	}
	if all[1].Model != "ThinkPad" || all[1].Quantity != 5 {
		t.Errorf("Expected D3 fields intact after shift, got %+v", all[1])
	}
	rows, _ := mem.Get(ctx, sheetstore.Range(Devices, "A2:A"))
	if len(rows) != 2 {
		t.Errorf("Expected the stale tail row cleared, got %d rows", len(rows))
	}
}

func TestPermissionErrorsAreLifted(t *testing.T) {
	mem := sheetstore.NewMemory()
	s := NewSheetStore(mem)
	err := wrap("read Devices", fmt.Errorf("google: %w", sheetstore.ErrPermissionDenied))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}
	if s.Backend() != BackendSheets {
		t.Errorf("Expected backend %q, got %q", BackendSheets, s.Backend())
	}
}

func TestUnconfiguredStore(t *testing.T) {
	ctx := context.Background()
	var s Store = Unconfigured{}
	if IsConfigured(s) {
		t.Errorf("Expected Unconfigured to report unconfigured")
	}
	devices, err := s.ListDevices(ctx)
	if err != nil || len(devices) != 0 {
		t.Errorf("Expected empty read, got %v %v", devices, err)
	}
	if err := s.CreateDevices(ctx, []models.Device{sampleDevice("D1")}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}
