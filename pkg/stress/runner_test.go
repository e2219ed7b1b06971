package stress_test

import (
	"context"
	"testing"
	"time"

	"github.com/Borislavv/transfer-cache/pkg/config"
	"github.com/Borislavv/transfer-cache/pkg/stress"
	"github.com/stretchr/testify/require"
)

func stressCfg(mode string) *config.Config {
	return &config.Config{
		TransferCacheMode:    mode,
		NumSizeClasses:       4,
		SpanSizeInBatches:    2,
		StressWorkers:        8,
		StressReportInterval: time.Minute,
	}
}

func runStress(t *testing.T, mode string) {
	t.Helper()
	d := 500 * time.Millisecond
	if testing.Short() {
		d = 50 * time.Millisecond
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	r := stress.New(stressCfg(mode))
	require.NoError(t, r.Run(ctx), "a stress run must verify clean")
}

func TestStressRunVerifiesCleanLockFree(t *testing.T) {
	runStress(t, "lockfree")
}

func TestStressRunVerifiesCleanLocked(t *testing.T) {
	runStress(t, "locked")
}

func TestStressRunHonorsRateLimit(t *testing.T) {
	cfg := stressCfg("lockfree")
	cfg.StressRateLimit = 100

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r := stress.New(cfg)
	require.NoError(t, r.Run(ctx))
}

func TestObjectChecksumDetectsTearing(t *testing.T) {
	obj := stress.NewObject(42)
	require.True(t, obj.Valid())

	torn := obj
	torn.Seed = 43
	require.False(t, torn.Valid(), "a mismatched seed/sum pair must fail validation")

	require.False(t, stress.Object{}.Valid(), "a zero object is not a valid payload")
}
