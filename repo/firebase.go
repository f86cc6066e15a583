package repo

import (
	"DonorBot/model"
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

const screeningsPath = "screenings"

// FirebaseConnector stores screenings in the Firebase Realtime Database
type FirebaseConnector struct {
	app    *firebase.App
	client *db.Client
}

// NewFirebaseConnector creates a new Firebase connector
func NewFirebaseConnector(ctx context.Context, serviceAccountKeyPath string, databaseURL string) (*FirebaseConnector, error) {
	opt := option.WithCredentialsFile(serviceAccountKeyPath)

	config := &firebase.Config{
		DatabaseURL: databaseURL,
	}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &FirebaseConnector{
		app:    app,
		client: client,
	}, nil
}

// Consume writes a finished screening under its session id
func (fc *FirebaseConnector) Consume(ctx context.Context, s model.Screening) error {
	ref := fc.client.NewRef(screeningsPath).Child(s.ID)
	if err := ref.Set(ctx, s); err != nil {
		return fmt.Errorf("error saving screening: %w", err)
	}
	return nil
}

// ReadScreening reads a screening by its id
func (fc *FirebaseConnector) ReadScreening(ctx context.Context, id string) (*model.Screening, error) {
	ref := fc.client.NewRef(screeningsPath).Child(id)
	var s model.Screening
	if err := ref.Get(ctx, &s); err != nil {
		return nil, fmt.Errorf("error reading screening: %w", err)
	}
	if s.ID == "" {
		return nil, model.ErrScreeningNotFound
	}
	return &s, nil
}

// ListScreenings lists the screenings of one user, newest first
func (fc *FirebaseConnector) ListScreenings(ctx context.Context, userID int64, limit int) ([]model.Screening, error) {
	q := fc.client.NewRef(screeningsPath).OrderByChild("userID").EqualTo(userID)
	var found map[string]model.Screening
	if err := q.Get(ctx, &found); err != nil {
		return nil, fmt.Errorf("error listing screenings: %w", err)
	}

	list := make([]model.Screening, 0, len(found))
	for key, s := range found {
		if s.ID == "" {
			s.ID = key
		}
		list = append(list, s)
	}
	return sortNewestFirst(list, limit), nil
}

// Close is a no-op; the database client holds no connection to release.
func (fc *FirebaseConnector) Close() error {
	return nil
}
