package obs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitQueryName(t *testing.T) {
	name, body := splitQueryName("-- name: ListDiscountRulesByTenant :many\nSELECT id FROM discount_rules")
	require.Equal(t, "ListDiscountRulesByTenant", name)
	require.Equal(t, "SELECT id FROM discount_rules", body)

	name, body = splitQueryName("  select 1 ")
	require.Empty(t, name)
	require.Equal(t, "select 1", body)
}
