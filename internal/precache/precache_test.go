package precache

import (
	"context"
	"sync"
	"testing"
	"time"

	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls map[string]int
	fail  func(ids []string, call int) error
}

func (f *fakeAnalyzer) Hybrid(_ context.Context, req pipeline.Request) (chem.Result, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	k := req.Substances[0] + "+" + req.Substances[1]
	f.calls[k]++
	n := f.calls[k]
	f.mu.Unlock()

	if f.fail != nil {
		if err := f.fail(req.Substances, n); err != nil {
			return chem.Result{}, err
		}
	}
	return chem.Result{AiStatus: chem.AiSkipped}, nil
}

func TestCombinationsCount(t *testing.T) {
	assert.Len(t, Combinations(CommonSubstances, false), 91) // C(14,2)
	all := Combinations(CommonSubstances, true)
	assert.Len(t, all, 91+20) // + C(6,3)

	last := all[len(all)-1]
	assert.Equal(t, []string{"Sodium Hydroxide", "Hydrochloric Acid", "Sulfuric Acid"},
		[]string{last[0].Name, last[1].Name, last[2].Name})
}

func TestRunSkipsFailuresAndRetries(t *testing.T) {
	subs := CommonSubstances[:4] // 6 pairs
	f := &fakeAnalyzer{fail: func(ids []string, call int) error {
		switch ids[0] + "+" + ids[1] {
		case "7681-52-9+7722-84-1":
			// transient, recovers on the second attempt
			if call == 1 {
				return chem.E("summary", chem.KindUpstreamTimeout, "slow", nil)
			}
		case "7681-52-9+1336-21-6":
			return chem.E("pipeline.fetch", chem.KindNotFound, "none", nil)
		case "1336-21-6+1310-73-2":
			return chem.E("pipeline.fetch", chem.KindUpstreamUnavailable, "down", nil)
		}
		return nil
	}}

	report, err := Run(context.Background(), f, subs, Options{Workers: 3, Attempts: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Len(t, report.Failed, 2)

	assert.Equal(t, 2, f.calls["7681-52-9+7722-84-1"])
	assert.Equal(t, 1, f.calls["7681-52-9+1336-21-6"], "not found is not retried")
	assert.Equal(t, 2, f.calls["1336-21-6+1310-73-2"])
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, &fakeAnalyzer{}, CommonSubstances, Options{Workers: 2, RatePerSecond: 1}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryDelayLongerForConnectionFailures(t *testing.T) {
	base := 100 * time.Millisecond

	for i := 0; i < 20; i++ {
		d := retryDelay(base, 0, chem.E("pipeline.fetch", chem.KindUpstreamServer, "HTTP 500", nil))
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, 2*base)

		d = retryDelay(base, 0, chem.E("reactivity.fetch", chem.KindUpstreamUnavailable, "refused", nil))
		assert.GreaterOrEqual(t, d, 2*base)
		assert.Less(t, d, 4*base)
	}
}
