package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crediscan/crediscan/internal/types"
)

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint(types.CompanyID{Name: "Acme Labs", Domain: "acme.dev"}, KindDiscovery)
	b := Fingerprint(types.CompanyID{Name: "Acme Labs", Domain: "acme.dev"}, KindDiscovery)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded sha256
}

func TestFingerprint_NormalizesCaseAndWhitespace(t *testing.T) {
	base := Fingerprint(types.CompanyID{Name: "Acme Labs"}, KindAnalysis)

	variants := []types.CompanyID{
		{Name: "acme labs"},
		{Name: "  Acme   Labs  "},
		{Name: "ACME\tLABS"},
	}
	for _, v := range variants {
		assert.Equal(t, base, Fingerprint(v, KindAnalysis), "variant %q", v.Name)
	}
}

func TestFingerprint_NormalizesDomain(t *testing.T) {
	base := Fingerprint(types.CompanyID{Domain: "acme.dev"}, KindDiscovery)

	variants := []string{"ACME.dev", "https://acme.dev", "http://www.acme.dev/", "www.acme.dev"}
	for _, d := range variants {
		assert.Equal(t, base, Fingerprint(types.CompanyID{Domain: d}, KindDiscovery), "variant %q", d)
	}
}

func TestFingerprint_KindsDiffer(t *testing.T) {
	id := types.CompanyID{Name: "Acme Labs"}
	assert.NotEqual(t,
		Fingerprint(id, KindDiscovery),
		Fingerprint(id, KindAnalysis))
}

func TestFingerprint_CompaniesDiffer(t *testing.T) {
	assert.NotEqual(t,
		Fingerprint(types.CompanyID{Name: "Acme Labs"}, KindDiscovery),
		Fingerprint(types.CompanyID{Name: "Acme Robotics"}, KindDiscovery))
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Labs", "acme labs"},
		{"  ACME  \t LABS ", "acme labs"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeName(tt.input))
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://www.Acme.dev/", "acme.dev"},
		{"acme.dev", "acme.dev"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeDomain(tt.input))
	}
}
