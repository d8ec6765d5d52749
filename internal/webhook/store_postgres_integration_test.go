//go:build integration

package webhook_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"formgate/internal/webhook"
	"formgate/pkg/testutil/containers"
)

type PostgresRegistrySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	registry *webhook.PostgresRegistry
}

func TestPostgresRegistrySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRegistrySuite))
}

func (s *PostgresRegistrySuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../migrations")
	s.registry = webhook.NewPostgresRegistry(s.postgres.DB)
}

func (s *PostgresRegistrySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "webhook_urls"))
}

func (s *PostgresRegistrySuite) TestCreateAndList() {
	ctx := context.Background()

	url := &webhook.URL{AccountID: 42, URL: "https://hooks.example.com", Events: []string{webhook.EventSubmissionCreated}}
	s.Require().NoError(s.registry.Create(ctx, url))
	s.NotZero(url.ID)

	s.Require().NoError(s.registry.Create(ctx, &webhook.URL{AccountID: 7, URL: "https://other.example.com", Events: []string{webhook.EventSubmissionCreated}}))

	urls, err := s.registry.ListByAccount(ctx, 42)
	s.Require().NoError(err)
	s.Require().Len(urls, 1)
	s.Equal("https://hooks.example.com", urls[0].URL)
	s.Equal([]string{webhook.EventSubmissionCreated}, urls[0].Events)
}

func (s *PostgresRegistrySuite) TestForAccountFiltersByEvent() {
	ctx := context.Background()

	s.Require().NoError(s.registry.Create(ctx, &webhook.URL{
		AccountID: 42, URL: "https://subscribed.example.com",
		Events: []string{webhook.EventSubmissionCreated, "submitter.completed"},
	}))
	s.Require().NoError(s.registry.Create(ctx, &webhook.URL{
		AccountID: 42, URL: "https://unsubscribed.example.com",
		Events: []string{"submitter.completed"},
	}))

	urls, err := s.registry.ForAccount(ctx, 42, webhook.EventSubmissionCreated)
	s.Require().NoError(err)
	s.Require().Len(urls, 1)
	s.Equal("https://subscribed.example.com", urls[0].URL)
}
