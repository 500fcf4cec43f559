package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	instance := &ServiceInstance{Name: "storefront", Host: "10.0.0.5", Port: 8000}
	assert.Equal(t, "/services/storefront/10.0.0.5:8000", Key("/services/", instance))

	v6 := &ServiceInstance{Name: "storefront", Host: "::1", Port: 8000}
	assert.Equal(t, "[::1]:8000", v6.Addr())
}

func TestParseInstance(t *testing.T) {
	instance, err := ParseInstance("storefront", "10.0.0.5:8000")
	require.NoError(t, err)
	assert.Equal(t, &ServiceInstance{Name: "storefront", Host: "10.0.0.5", Port: 8000}, instance)

	_, err = ParseInstance("storefront", "10.0.0.5")
	assert.Error(t, err)
	_, err = ParseInstance("storefront", "host:http")
	assert.Error(t, err)
}
