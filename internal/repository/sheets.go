package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"school_asset_server/internal/backend/sheetstore"
	"school_asset_server/internal/models"
	"school_asset_server/pkg/colors"
)

// SheetAppendChunk caps the rows sent in one append call.
const SheetAppendChunk = 500

type table struct {
	name   string
	header []string
}

func (t table) lastCol() string { return sheetstore.ColumnLetter(len(t.header) - 1) }

func (t table) headerRange() string { return sheetstore.Range(t.name, "A1:"+t.lastCol()+"1") }

// dataRange is every row below the header.
func (t table) dataRange() string { return sheetstore.Range(t.name, "A2:"+t.lastCol()) }

// rowRange addresses the data row at zero-based index i.
func (t table) rowRange(i int) string {
	n := strconv.Itoa(i + 2)
	return sheetstore.Range(t.name, "A"+n+":"+t.lastCol()+n)
}

// blockRange addresses data rows 0..n-1.
func (t table) blockRange(n int) string {
	return sheetstore.Range(t.name, "A2:"+t.lastCol()+strconv.Itoa(n+1))
}

// tailRange addresses data rows from..to-1.
func (t table) tailRange(from, to int) string {
	return sheetstore.Range(t.name, "A"+strconv.Itoa(from+2)+":"+t.lastCol()+strconv.Itoa(to+1))
}

var (
	devicesTable       = table{Devices, deviceHeader}
	instancesTable     = table{DeviceInstances, instanceHeader}
	locationsTable     = table{Locations, locationHeader}
	locationNamesTable = table{LocationNames, locationNameHeader}
	configTable        = table{SystemConfig, configHeader}
	softwareTable      = table{SoftwareTitles, softwareHeader}
	accountsTable      = table{Accounts, accountHeader}
	loansTable         = table{Loans, loanHeader}
)

// SheetStore implements Store on a spreadsheet. Lookups by id scan the whole
// table; multi-table operations are sequential and not atomic.
type SheetStore struct {
	client  sheetstore.Client
	ensured sync.Map // tab name -> struct{}
}

var _ Store = (*SheetStore)(nil)

func NewSheetStore(client sheetstore.Client) *SheetStore {
	return &SheetStore{client: client}
}

func (s *SheetStore) Backend() string { return BackendSheets }

// rows returns the data rows of t, or nil when the tab does not exist.
func (s *SheetStore) rows(ctx context.Context, t table) ([][]string, error) {
	rows, err := s.client.Get(ctx, t.dataRange())
	if err != nil {
		return nil, wrap("read "+t.name, err)
	}
	return rows, nil
}

// ensure creates t with its header row on first use.
func (s *SheetStore) ensure(ctx context.Context, t table) error {
	if _, ok := s.ensured.Load(t.name); ok {
		return nil
	}
	existing, err := s.client.Get(ctx, t.headerRange())
	if err != nil {
		return wrap("read header "+t.name, err)
	}
	if existing == nil {
		colors.PrintInfo("Creating sheet %s", t.name)
		if err := s.client.CreateTable(ctx, t.name); err != nil && !errors.Is(err, sheetstore.ErrTableExists) {
			return wrap("create "+t.name, err)
		}
		existing = [][]string{}
	}
	if len(existing) == 0 {
		if err := s.client.Update(ctx, t.headerRange(), [][]string{t.header}); err != nil {
			return wrap("write header "+t.name, err)
		}
	}
	s.ensured.Store(t.name, struct{}{})
	return nil
}

func (s *SheetStore) appendRows(ctx context.Context, t table, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.ensure(ctx, t); err != nil {
		return err
	}
	for start := 0; start < len(rows); start += SheetAppendChunk {
		end := start + SheetAppendChunk
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.client.Append(ctx, t.dataRange(), rows[start:end]); err != nil {
			return wrap(fmt.Sprintf("append %s rows %d-%d", t.name, start, end-1), err)
		}
	}
	return nil
}

// rewrite replaces the first previous data rows of t with rows. Kept rows
// are written in place before the leftover tail is cleared, so a failed
// write leaves stale rows behind rather than an empty table.
func (s *SheetStore) rewrite(ctx context.Context, t table, rows [][]string, previous int) error {
	if err := s.ensure(ctx, t); err != nil {
		return err
	}
	if len(rows) > 0 {
		block := make([][]string, len(rows))
		for i, row := range rows {
			block[i] = padRow(row, len(t.header))
		}
		if err := s.client.Update(ctx, t.blockRange(len(block)), block); err != nil {
			return wrap("rewrite "+t.name, err)
		}
	}
	if previous > len(rows) {
		if err := s.client.Clear(ctx, t.tailRange(len(rows), previous)); err != nil {
			return wrap("clear "+t.name, err)
		}
	}
	return nil
}

// findRow scans column A for id. index is -1 when absent.
func (s *SheetStore) findRow(ctx context.Context, t table, id string) (int, [][]string, error) {
	rows, err := s.rows(ctx, t)
	if err != nil {
		return -1, nil, err
	}
	for i, row := range rows {
		if cell(row, 0) == id {
			return i, rows, nil
		}
	}
	return -1, rows, nil
}

// removeRows drops rows whose id is in ids and returns how many went.
func (s *SheetStore) removeRows(ctx context.Context, t table, ids []string) (int, error) {
	rows, err := s.rows(ctx, t)
	if err != nil || rows == nil {
		return 0, err
	}
	drop := idSet(ids)
	kept := make([][]string, 0, len(rows))
	removed := 0
	for _, row := range rows {
		id := cell(row, 0)
		if id == "" {
			continue
		}
		if drop[id] {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.rewrite(ctx, t, kept, len(rows))
}

// upsertRow replaces the row with the same id or appends a new one.
func (s *SheetStore) upsertRow(ctx context.Context, t table, row []string) error {
	idx, _, err := s.findRow(ctx, t, row[0])
	if err != nil {
		return err
	}
	if idx < 0 {
		return s.appendRows(ctx, t, [][]string{row})
	}
	return wrap("update "+t.name, s.client.Update(ctx, t.rowRange(idx), [][]string{row}))
}

// Devices

func (s *SheetStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.rows(ctx, devicesTable)
	if err != nil {
		return nil, err
	}
	devices := make([]models.Device, 0, len(rows))
	for _, row := range rows {
		if cell(row, 0) == "" {
			continue
		}
		devices = append(devices, rowToDevice(row))
	}
	return devices, nil
}

func (s *SheetStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	idx, rows, err := s.findRow(ctx, devicesTable, id)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, notFound("device", id)
	}
	d := rowToDevice(rows[idx])
	return &d, nil
}

func (s *SheetStore) CreateDevices(ctx context.Context, devices []models.Device) error {
	rows := make([][]string, len(devices))
	for i, d := range devices {
		rows[i] = deviceToRow(d)
	}
	return s.appendRows(ctx, devicesTable, rows)
}

func (s *SheetStore) UpdateDevice(ctx context.Context, id string, patch *models.DevicePatch) (*models.Device, error) {
	idx, rows, err := s.findRow(ctx, devicesTable, id)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, notFound("device", id)
	}
	d := rowToDevice(rows[idx])
	patch.Apply(&d)
	if err := s.client.Update(ctx, devicesTable.rowRange(idx), [][]string{deviceToRow(d)}); err != nil {
		return nil, wrap("update device "+id, err)
	}
	return &d, nil
}

func (s *SheetStore) DeleteDevices(ctx context.Context, ids []string) (int, error) {
	return s.removeRows(ctx, devicesTable, ids)
}

func (s *SheetStore) DeleteAllDevices(ctx context.Context) (int, error) {
	rows, err := s.rows(ctx, devicesTable)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	if err := s.client.Clear(ctx, devicesTable.dataRange()); err != nil {
		return 0, wrap("clear devices", err)
	}
	return len(rows), nil
}

// Instances

func (s *SheetStore) ListInstances(ctx context.Context) ([]models.DeviceInstance, error) {
	rows, err := s.rows(ctx, instancesTable)
	if err != nil {
		return nil, err
	}
	out := make([]models.DeviceInstance, 0, len(rows))
	for _, row := range rows {
		if cell(row, 0) == "" {
			continue
		}
		out = append(out, rowToInstance(row))
	}
	return out, nil
}

func (s *SheetStore) ListInstancesByDevice(ctx context.Context, deviceID string) ([]models.DeviceInstance, error) {
	all, err := s.ListInstances(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.DeviceInstance{}
	for _, inst := range all {
		if inst.DeviceID == deviceID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (s *SheetStore) CreateInstances(ctx context.Context, instances []models.DeviceInstance) error {
	rows := make([][]string, len(instances))
	for i, inst := range instances {
		rows[i] = instanceToRow(inst)
	}
	return s.appendRows(ctx, instancesTable, rows)
}

func (s *SheetStore) DeleteInstances(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.removeRows(ctx, instancesTable, ids)
	return err
}

func (s *SheetStore) RenameInstanceLocation(ctx context.Context, locationID, name string) (int, error) {
	rows, err := s.rows(ctx, instancesTable)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	changed := 0
	now := formatTime(time.Now())
	for i, row := range rows {
		if cell(row, 2) != locationID || cell(row, 3) == name {
			continue
		}
		inst := rowToInstance(row)
		inst.LocationName = name
		rows[i] = instanceToRow(inst)
		rows[i][6] = now
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	for i, row := range rows {
		rows[i] = padRow(row, len(instanceHeader))
	}
	if err := s.client.Update(ctx, instancesTable.blockRange(len(rows)), rows); err != nil {
		return 0, wrap("rename instance locations", err)
	}
	return changed, nil
}

func (s *SheetStore) ApplyDistribution(ctx context.Context, deviceID string, patch *models.DevicePatch, deleteIDs []string, create []models.DeviceInstance) error {
	if _, err := s.UpdateDevice(ctx, deviceID, patch); err != nil {
		return err
	}
	if err := s.DeleteInstances(ctx, deleteIDs); err != nil {
		return err
	}
	return s.CreateInstances(ctx, create)
}

// Locations

func (s *SheetStore) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.rows(ctx, locationsTable)
	if err != nil {
		return nil, err
	}
	out := make([]models.Location, 0, len(rows))
	for _, row := range rows {
		if cell(row, 0) == "" {
			continue
		}
		out = append(out, rowToLocation(row))
	}
	return out, nil
}

func (s *SheetStore) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	idx, rows, err := s.findRow(ctx, locationsTable, id)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, notFound("location", id)
	}
	l := rowToLocation(rows[idx])
	return &l, nil
}

func (s *SheetStore) SaveLocation(ctx context.Context, loc models.Location) error {
	return s.upsertRow(ctx, locationsTable, locationToRow(loc))
}

func (s *SheetStore) DeleteLocation(ctx context.Context, id string) error {
	n, err := s.removeRows(ctx, locationsTable, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("location", id)
	}
	if _, err := s.removeRows(ctx, locationNamesTable, []string{id}); err != nil {
		colors.PrintWarning("Location %s deleted but its name alias remains: %v", id, err)
	}
	return nil
}

func (s *SheetStore) ListLocationNames(ctx context.Context) (map[string]string, error) {
	rows, err := s.rows(ctx, locationNamesTable)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(rows))
	for _, row := range rows {
		if id := cell(row, 0); id != "" && cell(row, 1) != "" {
			names[id] = cell(row, 1)
		}
	}
	return names, nil
}

func (s *SheetStore) SetLocationName(ctx context.Context, id, name string) error {
	return s.upsertRow(ctx, locationNamesTable, []string{id, name})
}

// System config (map images and zone lists)

func (s *SheetStore) configRows(ctx context.Context) ([][]string, error) {
	rows, err := s.rows(ctx, configTable)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *SheetStore) configValue(ctx context.Context, key string) (string, bool, error) {
	rows, err := s.configRows(ctx)
	if err != nil {
		return "", false, err
	}
	for _, row := range rows {
		if cell(row, 0) == key {
			if len(row) > 1 {
				return row[1], true, nil
			}
			return "", true, nil
		}
	}
	return "", false, nil
}

func (s *SheetStore) SaveMapImage(ctx context.Context, mapID, image string) error {
	rows, err := s.configRows(ctx)
	if err != nil {
		return err
	}
	prefix := imagePrefix(mapID)
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		key := cell(row, 0)
		if key == "" || key == imageCountKey(mapID) || isImageChunkKey(prefix, key) {
			continue
		}
		kept = append(kept, padRow(row, 2))
	}
	chunks := splitImage(image, sheetChunkSize)
	for i, c := range chunks {
		kept = append(kept, []string{chunkKey(prefix, i), c})
	}
	kept = append(kept, []string{imageCountKey(mapID), strconv.Itoa(len(chunks))})
	return s.rewrite(ctx, configTable, kept, len(rows))
}

func (s *SheetStore) LoadMapImage(ctx context.Context, mapID string) (string, bool, error) {
	rows, err := s.configRows(ctx)
	if err != nil {
		return "", false, err
	}
	count := -1
	stored := map[string]string{}
	prefix := imagePrefix(mapID)
	for _, row := range rows {
		key := cell(row, 0)
		value := ""
		if len(row) > 1 {
			value = row[1]
		}
		switch {
		case key == imageCountKey(mapID):
			count = parseInt(value)
		case isImageChunkKey(prefix, key):
			stored[key] = value
		}
	}
	if count < 0 {
		return "", false, nil
	}
	image, err := assembleImage(prefix, stored, count)
	if err != nil {
		return "", true, err
	}
	return image, true, nil
}

func (s *SheetStore) SaveZoneList(ctx context.Context, mapID string, zones []models.Zone) error {
	blob, err := encodeZones(zones)
	if err != nil {
		return err
	}
	return s.upsertRow(ctx, configTable, []string{zoneListKey(mapID), blob})
}

func (s *SheetStore) LoadZoneList(ctx context.Context, mapID string) ([]models.Zone, bool, error) {
	blob, found, err := s.configValue(ctx, zoneListKey(mapID))
	if err != nil || !found {
		return nil, false, err
	}
	zones, err := decodeZones(blob)
	return zones, true, err
}

// Software and accounts

func (s *SheetStore) ListSoftware(ctx context.Context) ([]models.Software, error) {
	rows, err := s.rows(ctx, softwareTable)
	if err != nil {
		return nil, err
	}
	out := make([]models.Software, 0, len(rows))
	for _, row := range rows {
		if cell(row, 0) != "" {
			out = append(out, rowToSoftware(row))
		}
	}
	return out, nil
}

func (s *SheetStore) SaveSoftware(ctx context.Context, sw models.Software) error {
	return s.upsertRow(ctx, softwareTable, softwareToRow(sw))
}

func (s *SheetStore) DeleteSoftware(ctx context.Context, id string) error {
	return s.deleteOne(ctx, softwareTable, "software", id)
}

func (s *SheetStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.rows(ctx, accountsTable)
	if err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(rows))
	for _, row := range rows {
		if cell(row, 0) != "" {
			out = append(out, rowToAccount(row))
		}
	}
	return out, nil
}

func (s *SheetStore) SaveAccount(ctx context.Context, a models.Account) error {
	return s.upsertRow(ctx, accountsTable, accountToRow(a))
}

func (s *SheetStore) DeleteAccount(ctx context.Context, id string) error {
	return s.deleteOne(ctx, accountsTable, "account", id)
}

func (s *SheetStore) deleteOne(ctx context.Context, t table, kind, id string) error {
	n, err := s.removeRows(ctx, t, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// Loans

func (s *SheetStore) ListLoans(ctx context.Context) ([]models.Loan, error) {
	rows, err := s.rows(ctx, loansTable)
	if err != nil {
		return nil, err
	}
	out := make([]models.Loan, 0, len(rows))
	for _, row := range rows {
		if cell(row, 0) != "" {
			out = append(out, rowToLoan(row))
		}
	}
	return out, nil
}

func (s *SheetStore) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	idx, rows, err := s.findRow(ctx, loansTable, id)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return nil, notFound("loan", id)
	}
	l := rowToLoan(rows[idx])
	return &l, nil
}

func (s *SheetStore) CreateLoan(ctx context.Context, loan models.Loan, status models.DeviceStatus) error {
	if err := s.appendRows(ctx, loansTable, [][]string{loanToRow(loan)}); err != nil {
		return err
	}
	_, err := s.UpdateDevice(ctx, loan.DeviceID, &models.DevicePatch{Status: &status})
	return err
}

func (s *SheetStore) ReturnLoan(ctx context.Context, loanID, deviceID string, status models.DeviceStatus) error {
	if err := s.deleteOne(ctx, loansTable, "loan", loanID); err != nil {
		return err
	}
	_, err := s.UpdateDevice(ctx, deviceID, &models.DevicePatch{Status: &status})
	return err
}

func padRow(row []string, n int) []string {
	for len(row) < n {
		row = append(row, "")
	}
	return row
}
