package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartflow-systems/sfs-white-label-dashboard/pkg/config"
)

func TestEnabled(t *testing.T) {
	assert.False(t, New(&config.StripeConfig{}).Enabled())
	assert.True(t, New(&config.StripeConfig{SecretKey: "sk_test_123"}).Enabled())
}

func TestReferralCommission(t *testing.T) {
	// 30% of $29.00 is $8.70
	assert.EqualValues(t, 870, ReferralCommission(2900, 0.30))
	// Fractions of a cent round down
	assert.EqualValues(t, 299, ReferralCommission(999, 0.30))
	assert.EqualValues(t, 0, ReferralCommission(0, 0.30))
	assert.EqualValues(t, 0, ReferralCommission(2900, 0))
}
