package tenant

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"school_asset_server/config"
	"school_asset_server/internal/backend/docstore"
	"school_asset_server/internal/backend/sheetstore"
	"school_asset_server/internal/repository"
)

// NewGoogleFactory builds stores backed by Google Sheets and Firestore using
// the server's service account. One Sheets service is shared by every
// spreadsheet tenant. The "memory" type gets an in-process store.
func NewGoogleFactory(opts ...option.ClientOption) Factory {
	var (
		once    sync.Once
		svc     *sheets.Service
		initErr error
	)
	return func(ctx context.Context, cfg Config) (repository.Store, error) {
		switch cfg.DBType {
		case DBTypeSheets:
			once.Do(func() {
				svc, initErr = config.NewSheetsService(context.Background(), opts...)
			})
			if initErr != nil {
				return nil, initErr
			}
			return repository.NewSheetStore(sheetstore.NewGoogle(svc, cfg.Sheet.SpreadsheetID)), nil
		case DBTypeFirebase:
			client, err := config.NewFirestoreClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.StorageBucket, opts...)
			if err != nil {
				return nil, err
			}
			return repository.NewDocStore(docstore.NewFirestore(client)), nil
		case DBTypeMemory:
			return MemoryFactory(ctx, cfg)
		}
		return nil, fmt.Errorf("%w: unknown dbType %q", ErrInvalidConfig, cfg.DBType)
	}
}

// MemoryFactory builds in-process stores. A "firebase" config gets a
// document-backed store; anything else a sheet-backed one.
func MemoryFactory(ctx context.Context, cfg Config) (repository.Store, error) {
	if cfg.DBType == DBTypeFirebase {
		return repository.NewDocStore(docstore.NewMemory()), nil
	}
	return repository.NewSheetStore(sheetstore.NewMemory()), nil
}
