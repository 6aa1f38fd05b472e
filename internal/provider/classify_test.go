package provider

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	providers := newFakeRegistry().All()

	cases := []struct {
		url  string
		want ProviderName
	}{
		{"https://open.spotify.com/artist/4Z8W4fKeB5YxbusRsdQVPb", NameSpotify},
		{"spotify:artist:4Z8W4fKeB5YxbusRsdQVPb", NameSpotify},
		{"https://www.youtube.com/@radiohead", NameYouTube},
		{"m.youtube.com/channel/UCq19-LqvG35A-30oyAiPiqA", NameYouTube},
		{"  https://www.deezer.com/fr/artist/399  ", NameDeezer},
		{"HTTPS://WWW.LAST.FM/music/Radiohead", NameLastFM},
		{"http://last.fm:80/music/Radiohead", NameLastFM},
	}
	for _, tc := range cases {
		p, err := Classify(tc.url, providers)
		if err != nil {
			t.Errorf("Classify(%q): %v", tc.url, err)
			continue
		}
		if p.Name() != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.url, p.Name(), tc.want)
		}
	}
}

func TestClassifyRejects(t *testing.T) {
	providers := newFakeRegistry().All()

	cases := []struct {
		url    string
		reason string
	}{
		{"", "empty URL"},
		{"   ", "empty URL"},
		{"https://myspace.com/radiohead", "unsupported platform"},
		{"https://notspotify.com/artist/x", "unsupported platform"},
		{"ftp://open.spotify.com/artist/x", "unsupported scheme ftp"},
		{"https://", "missing host"},
	}
	for _, tc := range cases {
		p, err := Classify(tc.url, providers)
		if err == nil {
			t.Errorf("Classify(%q) = %s, want error", tc.url, p.Name())
			continue
		}
		var vErr *ErrValidation
		if !errors.As(err, &vErr) {
			t.Errorf("Classify(%q): expected ErrValidation, got %T", tc.url, err)
			continue
		}
		if vErr.Reason != tc.reason {
			t.Errorf("Classify(%q) reason = %q, want %q", tc.url, vErr.Reason, tc.reason)
		}
	}
}

// The first provider in priority order wins when patterns overlap.
func TestClassifyPriority(t *testing.T) {
	greedy := &fakeProvider{name: NameSpotify, domains: []string{"deezer.com"}}
	deezer := &fakeProvider{name: NameDeezer, domains: []string{"deezer.com"}}

	p, err := Classify("https://www.deezer.com/artist/399", []Provider{greedy, deezer})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != NameSpotify {
		t.Errorf("expected first matching provider, got %s", p.Name())
	}
}

func TestValidateURL(t *testing.T) {
	providers := newFakeRegistry().All()

	res := ValidateURL("https://www.deezer.com/artist/399", providers)
	if !res.IsValid || res.Platform != NameDeezer || res.Error != "" {
		t.Errorf("unexpected result %+v", res)
	}

	res = ValidateURL("https://example.com", providers)
	if res.IsValid || res.Error == "" || res.Platform != "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHostMatches(t *testing.T) {
	u, err := ParseURL("https://music.youtube.com./watch")
	if err != nil {
		t.Fatal(err)
	}
	if !HostMatches(u, "youtube.com") {
		t.Error("expected subdomain with trailing dot to match")
	}
	if HostMatches(u, "tube.com") {
		t.Error("expected suffix without dot boundary not to match")
	}
	if HostMatches(nil, "youtube.com") {
		t.Error("expected nil URL not to match")
	}
}
