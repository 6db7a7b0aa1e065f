package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"go-mlapi/types"
)

const (
	postsCollection = "posts"
	runsCollection  = "runs"
)

// ErrNotFound is returned when a stored analysis does not exist.
var ErrNotFound = errors.New("analysis not found")

// Store persists post analyses and feed runs in Firestore.
type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Exists reports whether an analysis with the given id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.Collection(postsCollection).Doc(id).Get(ctx)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking post %s: %w", id, err)
}

func (s *Store) SaveAnalysis(ctx context.Context, a types.Analysis) error {
	if _, err := s.client.Collection(postsCollection).Doc(a.ID).Set(ctx, a); err != nil {
		return fmt.Errorf("failed to set post document %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (types.Analysis, error) {
	var a types.Analysis
	doc, err := s.client.Collection(postsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return a, ErrNotFound
		}
		return a, fmt.Errorf("error getting post %s: %w", id, err)
	}
	if err := doc.DataTo(&a); err != nil {
		return a, fmt.Errorf("error decoding post %s: %w", id, err)
	}
	return a, nil
}

// ListRecent returns the most recently analyzed posts, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]types.Analysis, error) {
	iter := s.client.Collection(postsCollection).
		OrderBy("analyzedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var out []types.Analysis
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating posts: %w", err)
		}
		var a types.Analysis
		if err := doc.DataTo(&a); err != nil {
			return nil, fmt.Errorf("error decoding post %s: %w", doc.Ref.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) SaveRun(ctx context.Context, r types.RunReport) error {
	if _, err := s.client.Collection(runsCollection).Doc(r.ID).Set(ctx, r); err != nil {
		return fmt.Errorf("failed to set run document %s: %w", r.ID, err)
	}
	return nil
}
