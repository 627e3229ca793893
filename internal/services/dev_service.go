package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devradar/backend/internal/models"
	"github.com/devradar/backend/internal/storage"
)

var (
	ErrDevNotFound  = errors.New("developer not found")
	ErrDevExists    = errors.New("developer already registered")
	ErrUnauthorized = errors.New("unauthorized to modify this developer")
)

const maxListLimit = 500

// DevService stores developer profiles and answers proximity searches.
type DevService interface {
	Create(ctx context.Context, dev *models.Developer) (*models.Developer, error)
	GetByUsername(ctx context.Context, username string) (*models.Developer, error)
	List(ctx context.Context, limit int) ([]*models.Developer, error)
	Search(ctx context.Context, q models.SearchQuery) ([]*models.Developer, error)
	Update(ctx context.Context, username string, req *models.UpdateDevRequest) (*models.Developer, error)
	Delete(ctx context.Context, username string) error
	Close(ctx context.Context) error
}

// MemoryDevService is the store used when no MONGO_URI is configured.
// With a JSONStore it snapshots to disk after every write.
type MemoryDevService struct {
	mu     sync.RWMutex
	devs   map[string]*models.Developer // github_username -> developer
	store  *storage.JSONStore
	logger *slog.Logger
}

func NewMemoryDevService(store *storage.JSONStore, logger *slog.Logger) (*MemoryDevService, error) {
	s := &MemoryDevService{
		devs:   make(map[string]*models.Developer),
		store:  store,
		logger: logger,
	}
	if store == nil {
		return s, nil
	}

	var snapshot []*models.Developer
	if err := store.Load(&snapshot); err != nil {
		return nil, err
	}
	for _, d := range snapshot {
		s.devs[d.GithubUsername] = d
	}
	logger.Info("loaded developer snapshot", slog.Int("count", len(s.devs)))
	return s, nil
}

func (s *MemoryDevService) Create(ctx context.Context, dev *models.Developer) (*models.Developer, error) {
	if err := dev.Location.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.devs[dev.GithubUsername]; exists {
		return nil, ErrDevExists
	}

	now := time.Now().UTC()
	stored := *dev
	stored.ID = uuid.New().String()
	stored.Techs = append([]string(nil), dev.Techs...)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.devs[stored.GithubUsername] = &stored
	s.persistLocked()

	out := stored
	return &out, nil
}

func (s *MemoryDevService) GetByUsername(ctx context.Context, username string) (*models.Developer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dev, exists := s.devs[models.NormalizeUsername(username)]
	if !exists {
		return nil, ErrDevNotFound
	}

	out := *dev
	return &out, nil
}

func (s *MemoryDevService) List(ctx context.Context, limit int) ([]*models.Developer, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*models.Developer, 0, len(s.devs))
	for _, dev := range s.devs {
		d := *dev
		results = append(results, &d)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Search mirrors the Mongo $nearSphere query: radius bound, tag intersection, nearest first.
func (s *MemoryDevService) Search(ctx context.Context, q models.SearchQuery) ([]*models.Developer, error) {
	type hit struct {
		dev      *models.Developer
		distance float64
	}

	s.mu.RLock()
	hits := make([]hit, 0)
	for _, dev := range s.devs {
		if !q.Matches(dev) {
			continue
		}
		d := *dev
		hits = append(hits, hit{dev: &d, distance: models.DistanceMeters(q.Center, dev.Location)})
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].distance < hits[j].distance
	})

	limit := q.Limit
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}
	results := make([]*models.Developer, 0, len(hits))
	for _, h := range hits {
		if len(results) == limit {
			break
		}
		results = append(results, h.dev)
	}
	return results, nil
}

func (s *MemoryDevService) Update(ctx context.Context, username string, req *models.UpdateDevRequest) (*models.Developer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev, exists := s.devs[models.NormalizeUsername(username)]
	if !exists {
		return nil, ErrDevNotFound
	}

	if req.Name != nil {
		dev.Name = *req.Name
	}
	if req.Bio != nil {
		dev.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		dev.AvatarURL = *req.AvatarURL
	}
	if req.Techs != nil {
		dev.Techs = append([]string(nil), (*req.Techs)...)
	}
	if loc, ok := req.Location(); ok {
		dev.Location = loc
	}
	dev.UpdatedAt = time.Now().UTC()
	s.persistLocked()

	out := *dev
	return &out, nil
}

func (s *MemoryDevService) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.NormalizeUsername(username)
	if _, exists := s.devs[key]; !exists {
		return ErrDevNotFound
	}
	delete(s.devs, key)
	s.persistLocked()
	return nil
}

func (s *MemoryDevService) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// persistLocked is best effort: a failed snapshot is logged, the in-memory write stands.
func (s *MemoryDevService) persistLocked() {
	if err := s.saveLocked(); err != nil {
		s.logger.Error("failed to persist developer snapshot", slog.String("error", err.Error()))
	}
}

func (s *MemoryDevService) saveLocked() error {
	if s.store == nil {
		return nil
	}
	snapshot := make([]*models.Developer, 0, len(s.devs))
	for _, d := range s.devs {
		snapshot = append(snapshot, d)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].GithubUsername < snapshot[j].GithubUsername
	})
	return s.store.Save(snapshot)
}
