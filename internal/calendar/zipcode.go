// internal/calendar/zipcode.go
// Zipcode proximity lookups through an external HTTP API, with Redis
// caching. Every failure falls back to the source zipcode alone so the feed
// degrades to "my own area" instead of erroring.

package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// ZipcodeService answers proximity questions about zipcodes
type ZipcodeService interface {
	FindNearbyZipcodes(ctx context.Context, zipcode string) ([]string, error)
	Distance(ctx context.Context, zip1, zip2 string) (float64, error)
}

// HTTPZipcodeService backs ZipcodeService with a zipcode HTTP API
type HTTPZipcodeService struct {
	baseURL       string
	maxDistance   int // miles
	client        *http.Client
	cache         *redis.Client // optional; nil disables caching
	cacheDuration time.Duration
}

// NewHTTPZipcodeService creates a new zipcode service. cache may be nil.
func NewHTTPZipcodeService(baseURL string, maxDistanceMiles int, cache *redis.Client, cacheDuration time.Duration) *HTTPZipcodeService {
	return &HTTPZipcodeService{
		baseURL:       baseURL,
		maxDistance:   maxDistanceMiles,
		client:        &http.Client{Timeout: 10 * time.Second},
		cache:         cache,
		cacheDuration: cacheDuration,
	}
}

type radiusResponse struct {
	ZipCodes []struct {
		ZipCode  string  `json:"zip_code"`
		Distance float64 `json:"distance"`
	} `json:"zip_codes"`
}

type distanceResponse struct {
	Distance float64 `json:"distance"`
}

// FindNearbyZipcodes returns every zipcode within the radius, source
// included. On any failure it returns just the source zipcode.
func (s *HTTPZipcodeService) FindNearbyZipcodes(ctx context.Context, zipcode string) ([]string, error) {
	cacheKey := fmt.Sprintf("zipcodes:radius:%s:%d", zipcode, s.maxDistance)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var zips []string
			if json.Unmarshal([]byte(cached), &zips) == nil && len(zips) > 0 {
				return zips, nil
			}
		}
	}

	url := fmt.Sprintf("%s/radius/%s/%d/mile", s.baseURL, zipcode, s.maxDistance)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return []string{zipcode}, nil
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Zipcode] Radius lookup for %s failed: %v. Returning only the source.", zipcode, err)
		return []string{zipcode}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Zipcode] Radius lookup for %s returned %d. Returning only the source.", zipcode, resp.StatusCode)
		return []string{zipcode}, nil
	}

	var body radiusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("[Zipcode] Radius response for %s unparseable: %v. Returning only the source.", zipcode, err)
		return []string{zipcode}, nil
	}

	zips := make([]string, 0, len(body.ZipCodes)+1)
	seen := make(map[string]bool, len(body.ZipCodes)+1)
	for _, z := range body.ZipCodes {
		if !seen[z.ZipCode] {
			seen[z.ZipCode] = true
			zips = append(zips, z.ZipCode)
		}
	}
	if !seen[zipcode] {
		zips = append(zips, zipcode)
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(zips); err == nil {
			if err := s.cache.Set(ctx, cacheKey, encoded, s.cacheDuration).Err(); err != nil {
				log.Printf("[Zipcode] Radius cache write for %s failed: %v", zipcode, err)
			}
		}
	}

	return zips, nil
}

// Distance returns the distance between two zipcodes in miles.
func (s *HTTPZipcodeService) Distance(ctx context.Context, zip1, zip2 string) (float64, error) {
	url := fmt.Sprintf("%s/distance/%s/%s/mile", s.baseURL, zip1, zip2)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("distance lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("distance lookup returned %d", resp.StatusCode)
	}

	var body distanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("distance response unparseable: %w", err)
	}
	return body.Distance, nil
}

// StaticZipcodeService serves a fixed radius map; used in development and
// tests.
type StaticZipcodeService struct {
	Nearby map[string][]string
}

// FindNearbyZipcodes returns the configured neighbors, or just the source
func (s *StaticZipcodeService) FindNearbyZipcodes(_ context.Context, zipcode string) ([]string, error) {
	if zips, ok := s.Nearby[zipcode]; ok {
		return zips, nil
	}
	return []string{zipcode}, nil
}

// Distance reports 0 for identical zipcodes and 1 otherwise
func (s *StaticZipcodeService) Distance(_ context.Context, zip1, zip2 string) (float64, error) {
	if zip1 == zip2 {
		return 0, nil
	}
	return 1, nil
}
