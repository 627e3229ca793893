package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devradar/backend/internal/models"
)

// ProfileFetcher looks a username up on GitHub.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (*models.GitHubProfile, error)
}

// DevPublisher announces a newly registered developer to live subscribers.
type DevPublisher interface {
	Publish(dev *models.Developer)
}

type RegistrationService struct {
	devs      DevService
	github    ProfileFetcher
	publisher DevPublisher
	mailer    Mailer
	logger    *slog.Logger
}

// NewRegistrationService accepts a nil publisher or mailer; those steps are then skipped.
func NewRegistrationService(devs DevService, github ProfileFetcher, publisher DevPublisher, mailer Mailer, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{
		devs:      devs,
		github:    github,
		publisher: publisher,
		mailer:    mailer,
		logger:    logger,
	}
}

// Register imports the GitHub profile and stores the developer. Registering a username twice
// returns the stored developer with created=false and publishes nothing.
func (s *RegistrationService) Register(ctx context.Context, req *models.CreateDevRequest) (*models.Developer, bool, error) {
	username := models.NormalizeUsername(req.GithubUsername)

	existing, err := s.devs.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrDevNotFound) {
		return nil, false, err
	}

	profile, err := s.github.FetchProfile(ctx, username)
	if err != nil {
		return nil, false, err
	}

	dev, err := s.devs.Create(ctx, &models.Developer{
		Name:           profile.DisplayName(),
		GithubUsername: username,
		Bio:            profile.Bio,
		AvatarURL:      profile.AvatarURL,
		Techs:          []string(req.Techs),
		Location:       models.NewGeoPoint(*req.Latitude, *req.Longitude),
	})
	if errors.Is(err, ErrDevExists) {
		// Lost a race with a concurrent registration of the same username.
		existing, err := s.devs.GetByUsername(ctx, username)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Info("developer registered",
		slog.String("github_username", dev.GithubUsername),
		slog.Any("techs", dev.Techs),
	)

	if s.publisher != nil {
		s.publisher.Publish(dev)
	}
	if s.mailer != nil && profile.Email != "" {
		go s.sendWelcome(context.WithoutCancel(ctx), profile.Email, dev)
	}

	return dev, true, nil
}

func (s *RegistrationService) sendWelcome(ctx context.Context, to string, dev *models.Developer) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := s.mailer.SendWelcome(ctx, to, dev); err != nil {
		s.logger.Warn("welcome e-mail failed",
			slog.String("github_username", dev.GithubUsername),
			slog.String("error", err.Error()),
		)
	}
}
