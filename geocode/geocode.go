package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrNoResults is returned when an address resolves to nothing.
var ErrNoResults = errors.New("no geocoding results")

// Place is the first geocoding match for an address.
type Place struct {
	FormattedAddress string
	Lat              float64
	Long             float64
}

// Geocoder resolves place names with the Google Maps Geocoding API.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a maps client for the given API key.
func NewGeocoder(apiKey string, opts ...maps.ClientOption) (*Geocoder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("MAPS_CREDENTIALS environment variable not set")
	}
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Geocode forward geocodes an address and returns the best match.
func (g *Geocoder) Geocode(ctx context.Context, address string) (Place, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return Place{}, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("geocode %q: %w", address, ErrNoResults)
	}

	first := results[0]
	return Place{
		FormattedAddress: first.FormattedAddress,
		Lat:              first.Geometry.Location.Lat,
		Long:             first.Geometry.Location.Lng,
	}, nil
}
