package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	instantRepo "shutterhub/database/repository/instant"
	userRepo "shutterhub/database/repository/user"
	"shutterhub/models"
	"shutterhub/services/notification"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoPhotographersNearby is returned when no available photographer sits
// within the requested radius.
var ErrNoPhotographersNearby = errors.New("no available photographers within the requested radius")

// MatchingService finds photographers near a point and pairs instant photo
// requests with the best candidate.
type MatchingService interface {
	SearchNearby(location models.GeoPoint, radiusKm float64) ([]models.PhotographerDTO, error)
	AutoMatch(ctx context.Context, userID string, location models.GeoPoint, radiusKm float64) (*models.InstantRequest, error)
	ListRequests(userID string) ([]models.InstantRequest, error)
}

// DefaultMatchingService ranks geo-filtered candidates by a weighted score
// and caches search results briefly, since nearby availability changes fast.
type DefaultMatchingService struct {
	Users       userRepo.UserRepository
	Requests    instantRepo.InstantRequestRepository
	CacheClient *redis.Client
	Notifier    notification.NotificationService
	Logger      *zap.Logger
}

// Scoring constants. Distance dominates for instant requests; reputation
// breaks ties between comparably close photographers.
const (
	baseProximityScore = 100.0
	distancePenalty    = 8.0
	ratingWeight       = 10.0
	shootsWeight       = 5.0
	verifiedBonus      = 15.0
	proximityWeight    = 0.5
	reputationWeight   = 0.5

	searchCacheTTL = 2 * time.Minute
)

// SearchNearby returns available photographers within radiusKm of the given
// point, best match first. Results are served from cache when a recent
// identical search exists.
func (s *DefaultMatchingService) SearchNearby(location models.GeoPoint, radiusKm float64) ([]models.PhotographerDTO, error) {
	ctx := context.Background()

	cacheKey := fmt.Sprintf("match:%.4f:%.4f:%.1f", location.Coordinates[0], location.Coordinates[1], radiusKm)
	if s.CacheClient != nil {
		cached, err := s.CacheClient.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var results []models.PhotographerDTO
			if err := json.Unmarshal([]byte(cached), &results); err == nil {
				return results, nil
			}
			// Stale or corrupt entry; recompute.
		}
	}

	candidates, err := s.Users.SearchNearbyPhotographers(location, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("failed to search photographers: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoPhotographersNearby
	}

	type scoredCandidate struct {
		dto   models.PhotographerDTO
		score float64
	}
	scored := make([]scoredCandidate, 0, len(candidates))

	for _, p := range candidates {
		distanceKm := haversine(
			location.Coordinates[1], location.Coordinates[0],
			p.LocationGeo.Coordinates[1], p.LocationGeo.Coordinates[0])

		proximityScore := baseProximityScore - distanceKm*distancePenalty
		if proximityScore < 0 {
			proximityScore = 0
		}

		reputationScore := p.Rating*ratingWeight + math.Log(float64(p.CompletedShoots)+1)*shootsWeight
		if p.Verified {
			reputationScore += verifiedBonus
		}

		scored = append(scored, scoredCandidate{
			dto: models.PhotographerDTO{
				ID:              p.ID,
				Name:            p.Name,
				Rating:          p.Rating,
				CompletedShoots: p.CompletedShoots,
				Verified:        p.Verified,
				DistanceKm:      distanceKm,
				LocationGeo:     p.LocationGeo,
			},
			score: proximityWeight*proximityScore + reputationWeight*reputationScore,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	results := make([]models.PhotographerDTO, len(scored))
	for i, sc := range scored {
		results[i] = sc.dto
	}

	if s.CacheClient != nil {
		if resultBytes, err := json.Marshal(results); err == nil {
			s.CacheClient.Set(ctx, cacheKey, resultBytes, searchCacheTTL)
		}
	}
	return results, nil
}

// AutoMatch records an instant request and pairs it with the best available
// photographer. A request with no candidates is recorded as failed, not
// dropped, so the guest sees why nothing happened.
func (s *DefaultMatchingService) AutoMatch(ctx context.Context, userID string, location models.GeoPoint, radiusKm float64) (*models.InstantRequest, error) {
	req := &models.InstantRequest{
		ID:          uuid.New().String(),
		UserID:      userID,
		LocationGeo: location,
		RadiusKm:    radiusKm,
		Status:      models.InstantRequestOpen,
		CreatedAt:   time.Now(),
	}
	if err := s.Requests.Create(req); err != nil {
		return nil, fmt.Errorf("failed to record instant request: %w", err)
	}

	results, err := s.SearchNearby(location, radiusKm)
	if err != nil {
		if errors.Is(err, ErrNoPhotographersNearby) {
			req.Status = models.InstantRequestFailed
			req.Message = fmt.Sprintf("No photographers available within %.0f km right now. Try widening the radius or booking a session instead.", radiusKm)
			if updErr := s.Requests.Update(req); updErr != nil {
				s.Logger.Error("failed to record failed match",
					zap.String("request", req.ID), zap.Error(updErr))
			}
			return req, nil
		}
		return nil, err
	}

	best := results[0]
	req.Status = models.InstantRequestMatched
	req.PhotographerID = best.ID
	req.Message = fmt.Sprintf("Matched with %s, %.1f km away.", best.Name, best.DistanceKm)
	if err := s.Requests.Update(req); err != nil {
		return nil, fmt.Errorf("failed to record match: %w", err)
	}

	s.Logger.Info("instant request matched",
		zap.String("request", req.ID),
		zap.String("photographer", best.ID),
		zap.Float64("distanceKm", best.DistanceKm))

	s.notify(userID, "Photographer found",
		req.Message, map[string]string{"requestId": req.ID, "photographerId": best.ID})
	s.notify(best.ID, "Instant photo request",
		"A guest nearby wants an instant shoot. Open the app to respond.",
		map[string]string{"requestId": req.ID})
	return req, nil
}

// ListRequests returns a user's instant requests, newest first.
func (s *DefaultMatchingService) ListRequests(userID string) ([]models.InstantRequest, error) {
	return s.Requests.ListByUser(userID)
}

func (s *DefaultMatchingService) notify(userID, title, body string, data map[string]string) {
	if s.Notifier == nil {
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	data["type"] = models.NotifyInstantMatchFound
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Notifier.SendUserPushNotification(ctx, userID, title, body, data); err != nil {
			s.Logger.Warn("push notification failed",
				zap.String("user", userID), zap.Error(err))
		}
	}()
}

// haversine calculates the great-circle distance (in km) between two lat/lon points.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
