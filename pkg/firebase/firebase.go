package firebase

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	gstorage "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Options select the project the app talks to. An empty CredentialsPath
// falls back to application default credentials (or the emulators).
type Options struct {
	CredentialsPath string
	ProjectID       string
	StorageBucket   string
}

// App holds the initialized Firebase app and auth client
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
	bucket      string
}

// InitFirebase initializes the Firebase application and authentication client
func InitFirebase(ctx context.Context, opts Options, logger *slog.Logger) (*App, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsPath != "" {
		// Check if the credentials file exists
		if _, err := os.Stat(opts.CredentialsPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("firebase credentials file not found at %s", opts.CredentialsPath)
		}
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsPath))
	}

	conf := &firebase.Config{
		ProjectID:     opts.ProjectID,
		StorageBucket: opts.StorageBucket,
	}
	firebaseApp, err := firebase.NewApp(ctx, conf, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	logger.Info("firebase app initialized", "projectId", opts.ProjectID)
	return &App{FirebaseApp: firebaseApp, AuthClient: authClient, bucket: opts.StorageBucket}, nil
}

// Firestore returns a client for the app's default database
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.FirebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}

// Bucket returns the configured storage bucket and its name
func (a *App) Bucket(ctx context.Context) (*gstorage.BucketHandle, string, error) {
	client, err := a.FirebaseApp.Storage(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("error getting storage client: %w", err)
	}
	bucket, err := client.Bucket(a.bucket)
	if err != nil {
		return nil, "", fmt.Errorf("error opening bucket %s: %w", a.bucket, err)
	}
	return bucket, a.bucket, nil
}
