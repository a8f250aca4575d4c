package dns

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneForName(t *testing.T) {
	zone, err := zoneForName("cluster1.slateci.io.")
	require.NoError(t, err)
	assert.Equal(t, "slateci.io.", zone)

	_, err = zoneForName("noTLD")
	assert.Error(t, err)
}

func TestRecordType(t *testing.T) {
	rt, err := recordType("192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, types.RRTypeA, rt)

	rt, err = recordType("2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, types.RRTypeAaaa, rt)

	_, err = recordType("")
	assert.Error(t, err)

	_, err = recordType("not-an-ip")
	assert.Error(t, err)
}
