package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"venueadmin/internal/app/venues"
	"venueadmin/internal/auth"
	"venueadmin/internal/httpapi"
	"venueadmin/internal/store"
	"venueadmin/internal/uploads"
	"venueadmin/shared/go/config"
)

func newHTTPHandler(ctx context.Context, cfg *config.Config, db *sql.DB) (http.Handler, error) {
	dataStore := store.New(db)

	policy, err := venues.ParseDiscountPolicy(cfg.Venues.DiscountPolicy)
	if err != nil {
		return nil, err
	}
	venueSvc := venues.New(dataStore, venues.Options{
		DefaultDestinationSlug: cfg.Venues.DefaultDestinationSlug,
		DiscountPolicy:         policy,
	})

	uploadSvc, err := uploads.New(ctx, uploads.Config{
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		PublicBaseURL:   cfg.Storage.PublicBaseURL,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		Endpoint:        cfg.Storage.Endpoint,
		PublicReadACL:   cfg.Storage.PublicReadACL,
	})
	if err != nil {
		return nil, fmt.Errorf("init uploads: %w", err)
	}

	codec, err := auth.NewSessionCodec(cfg.Security.JWTSecret)
	if err != nil {
		return nil, err
	}
	gate := auth.NewGate(codec, auth.Policy{
		AllowedEmails: cfg.Security.AdminEmails,
		ImportSecret:  cfg.Security.ImportSecret,
	})
	google := auth.NewGoogleVerifier(
		cfg.Security.GoogleClientID,
		auth.NewJWKSCache(cfg.Security.GoogleJWKSURL, nil, 0),
	)

	return httpapi.New(venueSvc, uploadSvc, gate, codec, google, dataStore, httpapi.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
		AuthRateLimit:  cfg.Security.AuthRateLimit,
	}).Routes(), nil
}
