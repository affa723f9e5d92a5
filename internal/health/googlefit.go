package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	fitness "google.golang.org/api/fitness/v1"
	"google.golang.org/api/option"
)

const (
	stepDeltaDataType = "com.google.step_count.delta"
	dayMillis         = int64(24 * time.Hour / time.Millisecond)
)

// GoogleFitPlatform reads daily step buckets from the Google Fit REST API using a stored
// OAuth refresh token. Consent is granted out of band.
type GoogleFitPlatform struct {
	svc *fitness.Service
	ts  oauth2.TokenSource
}

// fitBucket is the array-shaped record emitted for Transform.
type fitBucket struct {
	StartTime int64 `json:"startTime"`
	Steps     int64 `json:"steps"`
}

func NewGoogleFitPlatform(ctx context.Context, clientID, clientSecret, refreshToken string) (*GoogleFitPlatform, error) {
	if refreshToken == "" {
		return nil, errors.New("google fit requires a refresh token")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{fitness.FitnessActivityReadScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := fitness.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create google fit client: %w", err)
	}

	return &GoogleFitPlatform{svc: svc, ts: ts}, nil
}

func (g *GoogleFitPlatform) Name() string {
	return "googlefit"
}

func (g *GoogleFitPlatform) Status(_ context.Context) (Status, error) {
	if _, err := g.ts.Token(); err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return Status{Available: true}, nil
		}
		return Status{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Status{Available: true, PermissionsGranted: true}, nil
}

func (g *GoogleFitPlatform) RequestPermissions(_ context.Context) error {
	if _, err := g.ts.Token(); err != nil {
		return fmt.Errorf("%w: re-authorize the google account: %v", ErrPermissionDenied, err)
	}
	return nil
}

func (g *GoogleFitPlatform) Aggregate(ctx context.Context, req AggregateRequest) (json.RawMessage, error) {
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date: %w", err)
	}

	resp, err := g.svc.Users.Dataset.Aggregate("me", &fitness.AggregateRequest{
		AggregateBy:     []*fitness.AggregateBy{{DataTypeName: stepDeltaDataType}},
		BucketByTime:    &fitness.BucketByTime{DurationMillis: dayMillis},
		StartTimeMillis: start.UnixMilli(),
		EndTimeMillis:   end.UnixMilli(),
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google fit aggregate failed: %w", err)
	}

	buckets := make([]fitBucket, 0, len(resp.Bucket))
	for _, b := range resp.Bucket {
		var total int64
		for _, ds := range b.Dataset {
			for _, p := range ds.Point {
				for _, v := range p.Value {
					total += v.IntVal
				}
			}
		}
		buckets = append(buckets, fitBucket{StartTime: b.StartTimeMillis, Steps: total})
	}

	return json.Marshal(buckets)
}
