package integrity

import (
	"testing"

	"media-reconciler/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoader(t *testing.T) {
	svc := NewService(new(mocks.Client), testStorage, nil, nil, zap.NewNop())
	feature := NewFeature(svc)

	assert.Equal(t, "integrity", feature.Name())
	assert.True(t, feature.IsEnabled())

	app := fiber.New()
	assert.NoError(t, feature.Load(app))

	assert.False(t, NewFeature(nil).IsEnabled())
}
