package repository

import (
	"context"
	"time"

	"school_asset_server/internal/backend/docstore"
	"school_asset_server/internal/mapimage"
	"school_asset_server/internal/models"
)

// DocStore implements Store on a document database. Field queries are
// native; multi-document writes go through capped atomic batches.
type DocStore struct {
	client docstore.Client
}

var _ Store = (*DocStore)(nil)

func NewDocStore(client docstore.Client) *DocStore {
	return &DocStore{client: client}
}

func (s *DocStore) Backend() string { return BackendFirebase }

func (s *DocStore) commit(ctx context.Context, op string, ops []docstore.Op) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) <= docstore.ChunkSize {
		return wrap(op, s.client.Commit(ctx, ops))
	}
	_, err := docstore.BatchCommit(ctx, s.client, ops)
	return wrap(op, err)
}

// Devices

func (s *DocStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	recs, err := s.client.GetCollection(ctx, Devices)
	if err != nil {
		return nil, wrap("list devices", err)
	}
	out := make([]models.Device, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToDevice(r))
	}
	return out, nil
}

func (s *DocStore) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	rec, err := s.client.GetOne(ctx, Devices, id)
	if err != nil {
		return nil, wrap("get device", err)
	}
	if rec == nil {
		return nil, notFound("device", id)
	}
	d := recordToDevice(rec)
	return &d, nil
}

func (s *DocStore) CreateDevices(ctx context.Context, devices []models.Device) error {
	ops := make([]docstore.Op, len(devices))
	for i, d := range devices {
		ops[i] = docstore.SetOp(Devices, d.ID, deviceToRecord(d))
	}
	return s.commit(ctx, "create devices", ops)
}

func (s *DocStore) UpdateDevice(ctx context.Context, id string, patch *models.DevicePatch) (*models.Device, error) {
	current, err := s.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if fields := patch.Fields(); len(fields) > 0 {
		if err := s.client.Update(ctx, Devices, id, fields); err != nil {
			return nil, wrap("update device "+id, err)
		}
	}
	patch.Apply(current)
	return current, nil
}

func (s *DocStore) DeleteDevices(ctx context.Context, ids []string) (int, error) {
	existing := 0
	ops := make([]docstore.Op, 0, len(ids))
	for _, id := range ids {
		rec, err := s.client.GetOne(ctx, Devices, id)
		if err != nil {
			return 0, wrap("get device", err)
		}
		if rec == nil {
			continue
		}
		existing++
		ops = append(ops, docstore.DeleteOp(Devices, id))
	}
	if err := s.commit(ctx, "delete devices", ops); err != nil {
		return 0, err
	}
	return existing, nil
}

func (s *DocStore) DeleteAllDevices(ctx context.Context) (int, error) {
	recs, err := s.client.GetCollection(ctx, Devices)
	if err != nil {
		return 0, wrap("list devices", err)
	}
	ops := make([]docstore.Op, len(recs))
	for i, r := range recs {
		ops[i] = docstore.DeleteOp(Devices, r.ID())
	}
	if err := s.commit(ctx, "delete all devices", ops); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// Instances

func (s *DocStore) ListInstances(ctx context.Context) ([]models.DeviceInstance, error) {
	recs, err := s.client.GetCollection(ctx, DeviceInstances)
	if err != nil {
		return nil, wrap("list instances", err)
	}
	out := make([]models.DeviceInstance, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToInstance(r))
	}
	return out, nil
}

func (s *DocStore) ListInstancesByDevice(ctx context.Context, deviceID string) ([]models.DeviceInstance, error) {
	recs, err := s.client.QueryByField(ctx, DeviceInstances, "deviceId", deviceID)
	if err != nil {
		return nil, wrap("query instances", err)
	}
	out := make([]models.DeviceInstance, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToInstance(r))
	}
	return out, nil
}

func (s *DocStore) CreateInstances(ctx context.Context, instances []models.DeviceInstance) error {
	ops := make([]docstore.Op, len(instances))
	for i, inst := range instances {
		ops[i] = docstore.SetOp(DeviceInstances, inst.ID, instanceToRecord(inst))
	}
	return s.commit(ctx, "create instances", ops)
}

func (s *DocStore) DeleteInstances(ctx context.Context, ids []string) error {
	ops := make([]docstore.Op, len(ids))
	for i, id := range ids {
		ops[i] = docstore.DeleteOp(DeviceInstances, id)
	}
	return s.commit(ctx, "delete instances", ops)
}

func (s *DocStore) RenameInstanceLocation(ctx context.Context, locationID, name string) (int, error) {
	recs, err := s.client.QueryByField(ctx, DeviceInstances, "locationId", locationID)
	if err != nil {
		return 0, wrap("query instances", err)
	}
	now := time.Now().UTC()
	ops := []docstore.Op{}
	for _, r := range recs {
		if str(r, "locationName") == name {
			continue
		}
		ops = append(ops, docstore.UpdateOp(DeviceInstances, r.ID(), map[string]interface{}{
			"locationName": name,
			"updatedAt":    now,
		}))
	}
	if err := s.commit(ctx, "rename instance locations", ops); err != nil {
		return 0, err
	}
	return len(ops), nil
}

// ApplyDistribution commits the device patch, deletions and creations as one
// batch when they fit in a chunk; larger distributions fall back to
// sequential chunks.
func (s *DocStore) ApplyDistribution(ctx context.Context, deviceID string, patch *models.DevicePatch, deleteIDs []string, create []models.DeviceInstance) error {
	ops := make([]docstore.Op, 0, 1+len(deleteIDs)+len(create))
	fields := patch.Fields()
	if len(fields) == 0 {
		// an empty update still asserts the device exists inside the batch
		fields = map[string]interface{}{"id": deviceID}
	}
	ops = append(ops, docstore.UpdateOp(Devices, deviceID, fields))
	for _, id := range deleteIDs {
		ops = append(ops, docstore.DeleteOp(DeviceInstances, id))
	}
	for _, inst := range create {
		ops = append(ops, docstore.SetOp(DeviceInstances, inst.ID, instanceToRecord(inst)))
	}
	return s.commit(ctx, "apply distribution", ops)
}

// Locations

func (s *DocStore) ListLocations(ctx context.Context) ([]models.Location, error) {
	recs, err := s.client.GetCollection(ctx, Locations)
	if err != nil {
		return nil, wrap("list locations", err)
	}
	out := make([]models.Location, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToLocation(r))
	}
	return out, nil
}

func (s *DocStore) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	rec, err := s.client.GetOne(ctx, Locations, id)
	if err != nil {
		return nil, wrap("get location", err)
	}
	if rec == nil {
		return nil, notFound("location", id)
	}
	l := recordToLocation(rec)
	return &l, nil
}

func (s *DocStore) SaveLocation(ctx context.Context, loc models.Location) error {
	return wrap("save location", s.client.SetMerge(ctx, Locations, loc.ID, locationToRecord(loc)))
}

func (s *DocStore) DeleteLocation(ctx context.Context, id string) error {
	rec, err := s.client.GetOne(ctx, Locations, id)
	if err != nil {
		return wrap("get location", err)
	}
	if rec == nil {
		return notFound("location", id)
	}
	return s.commit(ctx, "delete location", []docstore.Op{
		docstore.DeleteOp(Locations, id),
		docstore.DeleteOp(LocationNames, id),
	})
}

func (s *DocStore) ListLocationNames(ctx context.Context) (map[string]string, error) {
	recs, err := s.client.GetCollection(ctx, LocationNames)
	if err != nil {
		return nil, wrap("list location names", err)
	}
	names := make(map[string]string, len(recs))
	for _, r := range recs {
		if n := str(r, "name"); n != "" {
			names[r.ID()] = n
		}
	}
	return names, nil
}

func (s *DocStore) SetLocationName(ctx context.Context, id, name string) error {
	return wrap("set location name", s.client.SetMerge(ctx, LocationNames, id, map[string]interface{}{"name": name}))
}

// Map configuration. Each chunk is its own document; chunks are written one
// by one because a batch of several near-limit documents exceeds the
// request size.

func (s *DocStore) SaveMapImage(ctx context.Context, mapID, image string) error {
	prefix := imagePrefix(mapID)
	metaID := imageCountKey(mapID)
	previous := 0
	if meta, err := s.client.GetOne(ctx, SystemConfig, metaID); err != nil {
		return wrap("read map image meta", err)
	} else if meta != nil {
		previous = int(num(meta, "chunkCount"))
	}

	chunks := splitImage(image, documentChunkSize)
	for i, c := range chunks {
		if err := s.client.SetMerge(ctx, SystemConfig, chunkKey(prefix, i), map[string]interface{}{"data": c}); err != nil {
			return wrap("write map image chunk", err)
		}
	}
	if err := s.client.SetMerge(ctx, SystemConfig, metaID, map[string]interface{}{
		"chunkCount": len(chunks),
		"updatedAt":  time.Now().UTC(),
	}); err != nil {
		return wrap("write map image meta", err)
	}

	stale := []docstore.Op{}
	for i := len(chunks); i < previous; i++ {
		stale = append(stale, docstore.DeleteOp(SystemConfig, chunkKey(prefix, i)))
	}
	return s.commit(ctx, "delete stale map chunks", stale)
}

func (s *DocStore) LoadMapImage(ctx context.Context, mapID string) (string, bool, error) {
	prefix := imagePrefix(mapID)
	meta, err := s.client.GetOne(ctx, SystemConfig, imageCountKey(mapID))
	if err != nil {
		return "", false, wrap("read map image meta", err)
	}
	if meta == nil {
		return "", false, nil
	}
	count := int(num(meta, "chunkCount"))
	image, err := mapimage.FetchAll(ctx, count, func(ctx context.Context, i int) (string, error) {
		rec, err := s.client.GetOne(ctx, SystemConfig, chunkKey(prefix, i))
		if err != nil {
			return "", err
		}
		if rec == nil {
			return "", mapimage.ErrMissingChunk
		}
		return str(rec, "data"), nil
	})
	if err != nil {
		return "", true, wrap("read map image", err)
	}
	return image, true, nil
}

func (s *DocStore) SaveZoneList(ctx context.Context, mapID string, zones []models.Zone) error {
	blob, err := encodeZones(zones)
	if err != nil {
		return err
	}
	return wrap("save zone list", s.client.SetMerge(ctx, SystemConfig, zoneListKey(mapID), map[string]interface{}{
		"zones":     blob,
		"updatedAt": time.Now().UTC(),
	}))
}

func (s *DocStore) LoadZoneList(ctx context.Context, mapID string) ([]models.Zone, bool, error) {
	rec, err := s.client.GetOne(ctx, SystemConfig, zoneListKey(mapID))
	if err != nil {
		return nil, false, wrap("load zone list", err)
	}
	if rec == nil {
		return nil, false, nil
	}
	zones, err := decodeZones(str(rec, "zones"))
	return zones, true, err
}

// Software and accounts

func (s *DocStore) ListSoftware(ctx context.Context) ([]models.Software, error) {
	recs, err := s.client.GetCollection(ctx, SoftwareTitles)
	if err != nil {
		return nil, wrap("list software", err)
	}
	out := make([]models.Software, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToSoftware(r))
	}
	return out, nil
}

func (s *DocStore) SaveSoftware(ctx context.Context, sw models.Software) error {
	return wrap("save software", s.client.SetMerge(ctx, SoftwareTitles, sw.ID, softwareToRecord(sw)))
}

func (s *DocStore) DeleteSoftware(ctx context.Context, id string) error {
	return s.deleteOne(ctx, SoftwareTitles, "software", id)
}

func (s *DocStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	recs, err := s.client.GetCollection(ctx, Accounts)
	if err != nil {
		return nil, wrap("list accounts", err)
	}
	out := make([]models.Account, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToAccount(r))
	}
	return out, nil
}

func (s *DocStore) SaveAccount(ctx context.Context, a models.Account) error {
	return wrap("save account", s.client.SetMerge(ctx, Accounts, a.ID, accountToRecord(a)))
}

func (s *DocStore) DeleteAccount(ctx context.Context, id string) error {
	return s.deleteOne(ctx, Accounts, "account", id)
}

func (s *DocStore) deleteOne(ctx context.Context, collection, kind, id string) error {
	rec, err := s.client.GetOne(ctx, collection, id)
	if err != nil {
		return wrap("get "+kind, err)
	}
	if rec == nil {
		return notFound(kind, id)
	}
	return wrap("delete "+kind, s.client.Delete(ctx, collection, id))
}

// Loans

func (s *DocStore) ListLoans(ctx context.Context) ([]models.Loan, error) {
	recs, err := s.client.GetCollection(ctx, Loans)
	if err != nil {
		return nil, wrap("list loans", err)
	}
	out := make([]models.Loan, 0, len(recs))
	for _, r := range recs {
		out = append(out, recordToLoan(r))
	}
	return out, nil
}

func (s *DocStore) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	rec, err := s.client.GetOne(ctx, Loans, id)
	if err != nil {
		return nil, wrap("get loan", err)
	}
	if rec == nil {
		return nil, notFound("loan", id)
	}
	l := recordToLoan(rec)
	return &l, nil
}

func (s *DocStore) CreateLoan(ctx context.Context, loan models.Loan, status models.DeviceStatus) error {
	return s.commit(ctx, "create loan", []docstore.Op{
		docstore.SetOp(Loans, loan.ID, loanToRecord(loan)),
		docstore.UpdateOp(Devices, loan.DeviceID, map[string]interface{}{"status": string(status)}),
	})
}

func (s *DocStore) ReturnLoan(ctx context.Context, loanID, deviceID string, status models.DeviceStatus) error {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return err
	}
	return s.commit(ctx, "return loan", []docstore.Op{
		docstore.DeleteOp(Loans, loanID),
		docstore.UpdateOp(Devices, deviceID, map[string]interface{}{"status": string(status)}),
	})
}
