package startup

import (
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/metadata"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store/storetest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeRecordsPolicy(t *testing.T) {
	db := storetest.OpenDB(t)
	ctx := t.Context()

	require.NoError(t, InitializeApplication(ctx, db, season.Weekly{Loc: time.UTC}, logger.Nop()))
	v, err := metadata.GetValue(ctx, db, metadata.PolicyKey)
	require.NoError(t, err)
	require.Equal(t, season.NameWeekly, v)

	// idempotent
	require.NoError(t, InitializeApplication(ctx, db, season.Weekly{Loc: time.UTC}, logger.Nop()))
}

func TestPolicySwitchIsLogged(t *testing.T) {
	db := storetest.OpenDB(t)
	ctx := t.Context()
	require.NoError(t, RecordPolicy(ctx, db, season.Weekly{Loc: time.UTC}, logger.Nop()))

	core, logs := observer.New(zap.WarnLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	require.NoError(t, RecordPolicy(ctx, db, season.Monthly{Loc: time.UTC}, log))

	require.Equal(t, 1, logs.FilterMessage("season policy changed since last start").Len())
	v, err := metadata.GetValue(ctx, db, metadata.PolicyKey)
	require.NoError(t, err)
	require.Equal(t, season.NameMonthly, v)
}
