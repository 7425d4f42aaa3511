package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrementPerLabel(t *testing.T) {
	before := testutil.ToFloat64(DepositTransitions.WithLabelValues("confirm"))
	DepositTransitions.WithLabelValues("confirm").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(DepositTransitions.WithLabelValues("confirm")))

	before = testutil.ToFloat64(Settlements.WithLabelValues("full"))
	Settlements.WithLabelValues("installment").Inc()
	assert.Equal(t, before, testutil.ToFloat64(Settlements.WithLabelValues("full")))
}
