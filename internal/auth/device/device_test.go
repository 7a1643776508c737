package device

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

const (
	chromeMac  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	chromeWin1 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.109 Safari/537.36"
	chromeWin2 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.224 Safari/537.36"
	chromeWin3 = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	safariIOS  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	firefoxLnx = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

type DeviceSuite struct {
	suite.Suite
	svc *Service
}

func TestDeviceSuite(t *testing.T) {
	suite.Run(t, new(DeviceSuite))
}

func (s *DeviceSuite) SetupTest() {
	s.svc = NewService(true)
}

func (s *DeviceSuite) TestParseUserAgent() {
	s.Equal("Unknown Device", ParseUserAgent(""))
	s.Equal("Unknown Device", ParseUserAgent("   "))

	tests := []struct {
		name     string
		ua       string
		contains []string
	}{
		{"desktop browser", chromeMac, []string{"Chrome", " on "}},
		{"mobile browser", safariIOS, []string{" on ", "iPhone"}},
		{"linux browser", firefoxLnx, []string{"Firefox", " on "}},
		{"game client", "SangcheolOdyssey/1.4 (UnityPlayer)", []string{" on "}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			label := ParseUserAgent(tt.ua)
			for _, want := range tt.contains {
				s.Contains(label, want)
			}
			s.NotContains(label, "  ")
		})
	}
}

func (s *DeviceSuite) TestComputeFingerprint() {
	s.Run("disabled or nil service", func() {
		s.Empty(NewService(false).ComputeFingerprint(chromeWin1))
		var nilSvc *Service
		s.Empty(nilSvc.ComputeFingerprint(chromeWin1))
		s.Empty(s.svc.ComputeFingerprint(""))
	})

	s.Run("hex sha256 and deterministic", func() {
		fp := s.svc.ComputeFingerprint(chromeMac)
		s.Len(fp, 64)
		s.Equal(fp, s.svc.ComputeFingerprint(chromeMac))
	})

	s.Run("minor browser upgrade keeps the fingerprint", func() {
		s.Equal(s.svc.ComputeFingerprint(chromeWin1), s.svc.ComputeFingerprint(chromeWin2))
	})

	s.Run("major browser upgrade or other os changes it", func() {
		s.NotEqual(s.svc.ComputeFingerprint(chromeWin1), s.svc.ComputeFingerprint(chromeWin3))
		s.NotEqual(s.svc.ComputeFingerprint(chromeWin1), s.svc.ComputeFingerprint(chromeMac))
	})
}
