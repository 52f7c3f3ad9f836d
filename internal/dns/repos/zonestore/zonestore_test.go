package zonestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldns/sentinel/internal/dns/common/log"
	"github.com/sentineldns/sentinel/internal/dns/domain"
	"github.com/sentineldns/sentinel/internal/dns/repos/zone"
	"github.com/sentineldns/sentinel/internal/dns/services/resolver"
)

func mustRecord(t *testing.T, name string, rrtype domain.RRType, data domain.RData) domain.ResourceRecord {
	t.Helper()
	rr, err := domain.NewResourceRecord(name, rrtype, domain.RRClassIN, 300, data)
	require.NoError(t, err)
	return rr
}

func testZone(t *testing.T) zone.Zone {
	t.Helper()
	soa := mustRecord(t, "example.com", domain.RRTypeSOA, domain.SOAData{
		MName: "ns1.example.com", RName: "hostmaster.example.com",
		Serial: 1, Refresh: 7200, Retry: 3600, Expire: 1209600, Minimum: 300,
	})
	return zone.Zone{
		Origin: "example.com",
		SOA:    soa,
		Records: []domain.ResourceRecord{
			soa,
			mustRecord(t, "www.example.com", domain.RRTypeA, domain.AData{Addr: [4]byte{192, 0, 2, 10}}),
			mustRecord(t, "www.example.com", domain.RRTypeA, domain.AData{Addr: [4]byte{192, 0, 2, 11}}),
			mustRecord(t, "www.example.com", domain.RRTypeAAAA, domain.AAAAData{Addr: [16]byte{0x20, 0x01, 0x0d, 0xb8, 15: 1}}),
			mustRecord(t, "blog.example.com", domain.RRTypeCNAME, domain.CNAMEData{Target: "www.example.com"}),
		},
	}
}

func TestFindExactMatch(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	records, found := zs.Find(domain.Question{Name: "www.example.com", Type: domain.RRTypeA, Class: domain.RRClassIN})
	require.True(t, found)
	assert.Len(t, records, 2)

	_, found = zs.Find(domain.Question{Name: "www.example.com", Type: domain.RRTypeMX, Class: domain.RRClassIN})
	assert.False(t, found, "type must match exactly")

	_, found = zs.Find(domain.Question{Name: "absent.example.com", Type: domain.RRTypeA, Class: domain.RRClassIN})
	assert.False(t, found)
}

func TestFindIsCaseInsensitive(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	_, found := zs.Find(domain.Question{Name: "WWW.Example.COM", Type: domain.RRTypeA, Class: domain.RRClassIN})
	assert.True(t, found)
}

func TestFindANY(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	records, found := zs.Find(domain.Question{Name: "www.example.com", Type: domain.RRTypeANY, Class: domain.RRClassIN})
	require.True(t, found)
	assert.Len(t, records, 3, "ANY returns every record owned by the name")
}

func TestInZone(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	origin, ok := zs.InZone("deep.sub.example.com")
	require.True(t, ok)
	assert.Equal(t, "example.com", origin)

	origin, ok = zs.InZone("example.com")
	require.True(t, ok)
	assert.Equal(t, "example.com", origin)

	_, ok = zs.InZone("example.org")
	assert.False(t, ok)

	_, ok = zs.InZone("notexample.com")
	assert.False(t, ok)
}

func TestInZoneLongestMatch(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	sub := testZone(t)
	sub.Origin = "internal.example.com"
	zs.PutZone(sub)

	origin, ok := zs.InZone("db.internal.example.com")
	require.True(t, ok)
	assert.Equal(t, "internal.example.com", origin)
}

func TestSOA(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	soa, ok := zs.SOA("example.com")
	require.True(t, ok)
	assert.Equal(t, domain.RRTypeSOA, soa.Type)

	_, ok = zs.SOA("example.org")
	assert.False(t, ok)
}

func TestResolverFollowsCNAMEThroughStore(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	r := resolver.New(resolver.Options{Zones: zs, Logger: log.NewNoopLogger()})
	req := domain.Message{
		Header:    domain.Header{ID: 0x4242, Opcode: domain.OpcodeQuery, QDCount: 1},
		Questions: []domain.Question{{Name: "blog.example.com", Type: domain.RRTypeA, Class: domain.RRClassIN}},
	}

	resp := r.HandleQuery(context.Background(), req, nil)

	assert.Equal(t, domain.RCodeNoError, resp.Header.RCode)
	assert.True(t, resp.Header.Authoritative)
	require.Len(t, resp.Answers, 3, "CNAME hop plus both A records for the target")
	assert.Equal(t, domain.RRTypeCNAME, resp.Answers[0].Type)
	assert.Equal(t, domain.RRTypeA, resp.Answers[1].Type)
	assert.Equal(t, domain.RRTypeA, resp.Answers[2].Type)
}

func TestPutZoneReplaces(t *testing.T) {
	zs := New()
	zs.PutZone(testZone(t))

	replacement := testZone(t)
	replacement.Records = replacement.Records[:1] // SOA only
	zs.PutZone(replacement)

	_, found := zs.Find(domain.Question{Name: "www.example.com", Type: domain.RRTypeA, Class: domain.RRClassIN})
	assert.False(t, found)
	assert.Equal(t, []string{"example.com"}, zs.Origins())
}
