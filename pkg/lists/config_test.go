package lists_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davisshaver/audiencesync/pkg/lists"
)

const sampleConfig = `
lists:
  - id: weekly
    provider_id: aud_123
    title: Weekly Digest
    active: true
  - id: daily
    provider_id: aud_456
    title: Daily Briefing
    active: true
  - id: legacy
    provider_id: aud_789
    title: Retired Newsletter
    active: false
`

func TestParseConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("resolves active lists", func(t *testing.T) {
		t.Parallel()

		cfg, err := lists.ParseConfig(strings.NewReader(sampleConfig))
		require.NoError(t, err)

		l, err := cfg.Resolve(ctx, "weekly")
		require.NoError(t, err)
		require.Equal(t, "aud_123", l.ProviderID)
		require.Equal(t, "Weekly Digest", l.Title)
	})

	t.Run("inactive lists resolve like unknown ones", func(t *testing.T) {
		t.Parallel()

		cfg, err := lists.ParseConfig(strings.NewReader(sampleConfig))
		require.NoError(t, err)

		_, err = cfg.Resolve(ctx, "legacy")
		require.ErrorIs(t, err, lists.ErrNotFound)

		_, err = cfg.Resolve(ctx, "never-existed")
		require.ErrorIs(t, err, lists.ErrNotFound)

		_, err = cfg.Resolve(ctx, "")
		require.ErrorIs(t, err, lists.ErrEmptyPublicID)
	})

	t.Run("known IDs exclude inactive lists", func(t *testing.T) {
		t.Parallel()

		cfg, err := lists.ParseConfig(strings.NewReader(sampleConfig))
		require.NoError(t, err)

		ids, err := cfg.KnownIDs(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"weekly", "daily"}, ids)
	})

	t.Run("all includes inactive lists", func(t *testing.T) {
		t.Parallel()

		cfg, err := lists.ParseConfig(strings.NewReader(sampleConfig))
		require.NoError(t, err)

		all, err := cfg.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
	})

	t.Run("rejects duplicate public IDs", func(t *testing.T) {
		t.Parallel()

		_, err := lists.ParseConfig(strings.NewReader(`
lists:
  - id: weekly
    provider_id: a
    active: true
  - id: weekly
    provider_id: b
    active: true
`))
		require.ErrorIs(t, err, lists.ErrDuplicateID)
	})

	t.Run("rejects entries missing required fields", func(t *testing.T) {
		t.Parallel()

		_, err := lists.ParseConfig(strings.NewReader(`
lists:
  - id: weekly
    active: true
`))
		require.ErrorIs(t, err, lists.ErrInvalidConfig)
	})

	t.Run("resolve returns a copy", func(t *testing.T) {
		t.Parallel()

		cfg, err := lists.ParseConfig(strings.NewReader(sampleConfig))
		require.NoError(t, err)

		l, err := cfg.Resolve(ctx, "weekly")
		require.NoError(t, err)
		l.Title = "mutated"

		again, err := cfg.Resolve(ctx, "weekly")
		require.NoError(t, err)
		require.Equal(t, "Weekly Digest", again.Title)
	})
}
