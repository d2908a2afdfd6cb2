package config

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"school_asset_server/pkg/colors"
)

const clientInitTimeout = 30 * time.Second

// ClientOptions returns the Google client options for the configured service
// account, or none to use application default credentials.
func (c *Config) ClientOptions() []option.ClientOption {
	switch {
	case c.Google.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(c.Google.CredentialsJSON))}
	case c.Google.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.Google.CredentialsFile)}
	}
	return nil
}

// NewFirestoreClient initializes a Firebase app for projectID and returns its
// Firestore client.
func NewFirestoreClient(ctx context.Context, projectID, storageBucket string, opts ...option.ClientOption) (*firestore.Client, error) {
	colors.PrintInfo("Initializing Firebase app for project %s...", projectID)

	ctx, cancel := context.WithTimeout(ctx, clientInitTimeout)
	defer cancel()

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     projectID,
		StorageBucket: storageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	colors.PrintSuccess("Firestore client ready for project %s", projectID)
	return client, nil
}

// NewSheetsService creates a Google Sheets API service.
func NewSheetsService(ctx context.Context, opts ...option.ClientOption) (*sheets.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, clientInitTimeout)
	defer cancel()

	opts = append([]option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	colors.PrintSuccess("Google Sheets service ready")
	return svc, nil
}
