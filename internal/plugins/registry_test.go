package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"target-csv/internal/config"
	"target-csv/internal/model"
)

func TestBuildTransformsDefaultsToSort(t *testing.T) {
	cfg := config.Default()
	cfg.RecordSortPropertyName = "id"

	transforms, err := BuildTransforms(cfg)
	require.NoError(t, err)
	require.Len(t, transforms, 1)

	records := []model.Record{{"id": "b"}, {"id": "a"}}
	require.NoError(t, transforms[0](records))
	assert.Equal(t, "a", records[0]["id"])
}

func TestBuildTransformsSkipsSortWithoutProperty(t *testing.T) {
	transforms, err := BuildTransforms(config.Default())
	require.NoError(t, err)
	assert.Empty(t, transforms)
}

func TestBuildTransformsUnknownName(t *testing.T) {
	_, err := BuildTransforms(config.Default(), "nope")
	assert.EqualError(t, err, `unknown transform "nope"`)
}

func TestRegisterTransformIsCaseInsensitive(t *testing.T) {
	called := false
	RegisterTransform("Mark_Seen", func(config.Config) Transform {
		return func([]model.Record) error {
			called = true
			return nil
		}
	})
	t.Cleanup(func() { delete(transformRegistry, "mark_seen") })

	transforms, err := BuildTransforms(config.Default(), "MARK_SEEN")
	require.NoError(t, err)
	require.Len(t, transforms, 1)
	require.NoError(t, transforms[0](nil))
	assert.True(t, called)
}
