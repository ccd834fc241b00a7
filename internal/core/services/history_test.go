package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
)

func TestHistoryService_NilJournal(t *testing.T) {
	results, err := NewHistoryService(nil).Recent(context.Background(), 5)

	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestHistoryService_Recent(t *testing.T) {
	ctx := context.Background()
	journal := &fakeJournal{}
	for i := 0; i < DefaultHistoryLimit+5; i++ {
		r := domain.NewFlowResult("", domain.ProviderX, domain.FlowConnect, domain.OutcomeTimeout, time.Now())
		require.NoError(t, journal.Record(ctx, &r))
	}
	last := domain.NewFlowResult("last", domain.ProviderSpotify, domain.FlowConnect, domain.OutcomeConnected, time.Now())
	require.NoError(t, journal.Record(ctx, &last))

	service := NewHistoryService(journal)

	limited, err := service.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, "last", limited[0].FlowID)

	defaulted, err := service.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, defaulted, DefaultHistoryLimit)
}
