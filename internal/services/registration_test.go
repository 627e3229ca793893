package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devradar/backend/internal/models"
	"github.com/devradar/backend/internal/services"
)

type fakeFetcher struct {
	profiles map[string]*models.GitHubProfile
	calls    int
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, username string) (*models.GitHubProfile, error) {
	f.calls++
	p, ok := f.profiles[username]
	if !ok {
		return nil, services.ErrGitHubUserNotFound
	}
	return p, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	devs []*models.Developer
}

func (p *recordingPublisher) Publish(dev *models.Developer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devs = append(p.devs, dev)
}

func (p *recordingPublisher) published() []*models.Developer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.Developer(nil), p.devs...)
}

type recordingMailer struct {
	sent chan string
}

func (m *recordingMailer) SendWelcome(ctx context.Context, to string, dev *models.Developer) error {
	m.sent <- to
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	newService := func(t *testing.T) (*services.RegistrationService, services.DevService, *fakeFetcher, *recordingPublisher, *recordingMailer) {
		devs := newMemoryService(t)
		fetcher := &fakeFetcher{profiles: map[string]*models.GitHubProfile{
			"octocat": {Login: "octocat", Name: "The Octocat", Bio: "mascot", AvatarURL: "https://avatars.example/1", Email: "octo@example.com"},
			"hubot":   {Login: "hubot", AvatarURL: "https://avatars.example/2"},
		}}
		pub := &recordingPublisher{}
		mailer := &recordingMailer{sent: make(chan string, 4)}
		return services.NewRegistrationService(devs, fetcher, pub, mailer, testLogger), devs, fetcher, pub, mailer
	}

	t.Run("new developer is stored, published and welcomed", func(t *testing.T) {
		svc, devs, _, pub, mailer := newService(t)

		dev, created, err := svc.Register(ctx, &models.CreateDevRequest{
			GithubUsername: "OctoCat",
			Techs:          models.TechList{"go", "rust"},
			Latitude:       ptr(-23.55),
			Longitude:      ptr(-46.63),
		})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "octocat", dev.GithubUsername)
		assert.Equal(t, "The Octocat", dev.Name)
		assert.Equal(t, "mascot", dev.Bio)
		assert.Equal(t, "https://avatars.example/1", dev.AvatarURL)
		assert.Equal(t, -23.55, dev.Location.Latitude())
		assert.Equal(t, -46.63, dev.Location.Longitude())

		stored, err := devs.GetByUsername(ctx, "octocat")
		require.NoError(t, err)
		assert.Equal(t, dev.ID, stored.ID)

		published := pub.published()
		require.Len(t, published, 1)
		assert.Equal(t, "octocat", published[0].GithubUsername)

		assert.Equal(t, "octo@example.com", <-mailer.sent)
	})

	t.Run("registering twice returns the existing profile", func(t *testing.T) {
		svc, _, fetcher, pub, _ := newService(t)
		req := &models.CreateDevRequest{
			GithubUsername: "hubot",
			Techs:          models.TechList{"js"},
			Latitude:       ptr(1.0),
			Longitude:      ptr(2.0),
		}

		first, created, err := svc.Register(ctx, req)
		require.NoError(t, err)
		require.True(t, created)

		second, created, err := svc.Register(ctx, &models.CreateDevRequest{
			GithubUsername: "hubot",
			Techs:          models.TechList{"go"},
			Latitude:       ptr(50.0),
			Longitude:      ptr(50.0),
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, []string{"js"}, second.Techs, "existing profile is not overwritten")
		assert.Equal(t, 1, fetcher.calls)
		assert.Len(t, pub.published(), 1)
	})

	t.Run("unknown github user", func(t *testing.T) {
		svc, devs, _, pub, _ := newService(t)

		_, _, err := svc.Register(ctx, &models.CreateDevRequest{
			GithubUsername: "ghost",
			Techs:          models.TechList{"go"},
			Latitude:       ptr(0.0),
			Longitude:      ptr(0.0),
		})
		assert.ErrorIs(t, err, services.ErrGitHubUserNotFound)
		assert.Empty(t, pub.published())

		_, err = devs.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, services.ErrDevNotFound)
	})

	t.Run("publisher and mailer are optional", func(t *testing.T) {
		svc := services.NewRegistrationService(newMemoryService(t), &fakeFetcher{profiles: map[string]*models.GitHubProfile{
			"octocat": {Login: "octocat", Email: "octo@example.com"},
		}}, nil, nil, testLogger)

		_, created, err := svc.Register(ctx, &models.CreateDevRequest{
			GithubUsername: "octocat",
			Techs:          models.TechList{"go"},
			Latitude:       ptr(0.0),
			Longitude:      ptr(0.0),
		})
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestResendMailer_Disabled(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		from   string
	}{
		{name: "no api key", apiKey: "", from: "radar@example.com"},
		{name: "no sender", apiKey: "re_123", from: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := services.NewResendMailer(tt.apiKey, tt.from, testLogger)
			assert.False(t, m.Enabled())
			assert.NoError(t, m.SendWelcome(context.Background(), "octo@example.com", &models.Developer{GithubUsername: "octocat"}))
		})
	}

	assert.True(t, services.NewResendMailer("re_123", "radar@example.com", testLogger).Enabled())
}
