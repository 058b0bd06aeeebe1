// Package storage builds the archival storage provider from environment
// configuration. Archival is optional: with no provider configured the
// factory returns nil and finished renders stay on local disk only.
package storage

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"clipforge/internal/adapters/storage/gdrive"
	"clipforge/internal/adapters/storage/localfs"
	"clipforge/internal/ports"
)

func NewProvider() (ports.StorageProvider, error) {
	switch provider := os.Getenv("ARCHIVE_PROVIDER"); provider {
	case "":
		return nil, nil

	case "localfs":
		root := os.Getenv("ARCHIVE_LOCAL_ROOT")
		if root == "" {
			return nil, fmt.Errorf("ARCHIVE_LOCAL_ROOT is required for localfs archival")
		}
		return localfs.New(root), nil

	case "gdrive":
		return newGDriveProvider()

	default:
		return nil, fmt.Errorf("unknown archive provider: %s", provider)
	}
}

func newGDriveProvider() (ports.StorageProvider, error) {
	ctx := context.Background()

	clientID := mustEnv("GDRIVE_CLIENT_ID")
	clientSecret := mustEnv("GDRIVE_CLIENT_SECRET")
	refreshToken := mustEnv("GDRIVE_REFRESH_TOKEN")
	folderID := os.Getenv("GDRIVE_FOLDER_ID")

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: refreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, folderID), nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
