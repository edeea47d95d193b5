package services

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ytakahashi/zikr-companion/internal/models"
	"github.com/ytakahashi/zikr-companion/internal/tracker"
)

// FirestoreStore keeps one tracker snapshot per document.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(ctx context.Context, projectID, credentialsFile, collection string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	if collection == "" {
		collection = "trackers"
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

func (fs *FirestoreStore) Close() error {
	return fs.client.Close()
}

func (fs *FirestoreStore) Load(ctx context.Context, key string) (*models.TrackerState, error) {
	doc, err := fs.client.Collection(fs.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, tracker.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tracker state: %w", err)
	}

	var state models.TrackerState
	if err := doc.DataTo(&state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracker state: %w", err)
	}
	return &state, nil
}

func (fs *FirestoreStore) Save(ctx context.Context, key string, state *models.TrackerState) error {
	_, err := fs.client.Collection(fs.collection).Doc(key).Set(ctx, state)
	if err != nil {
		return fmt.Errorf("failed to save tracker state: %w", err)
	}
	return nil
}

// Delete removes the snapshot stored under key.
func (fs *FirestoreStore) Delete(ctx context.Context, key string) error {
	_, err := fs.client.Collection(fs.collection).Doc(key).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete tracker state: %w", err)
	}
	return nil
}
