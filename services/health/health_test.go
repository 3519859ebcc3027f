package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedClients int

func (f fixedClients) GetClientCount() int { return int(f) }

func TestCheckWithoutStores(t *testing.T) {
	r := NewChecker("", "test", nil, nil, false, fixedClients(3)).Check(context.Background())
	assert.Equal(t, StatusOK, r.Status)
	assert.Equal(t, "SchoolDesk API", r.Service)
	assert.Equal(t, 3, r.Queues.WSClients)
	assert.Len(t, r.Dependencies, 2)
	assert.Equal(t, 200, HTTPStatus(r.Status))
}

func TestMissingRequiredRedisDegrades(t *testing.T) {
	r := NewChecker("api", "test", nil, nil, true, nil).Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.Equal(t, "down", r.Dependencies[1].Status)
	assert.Equal(t, 503, HTTPStatus(StatusCritical))
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "0s", Humanize(0))
	assert.Equal(t, "1d 2h 5s", Humanize(26*time.Hour+5*time.Second))
	assert.Equal(t, "3m", Humanize(3*time.Minute))
}
