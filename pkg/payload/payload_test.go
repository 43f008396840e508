package payload

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Type
	}{
		{"https://github.com/golang/go", TypeURL},
		{"HTTP://EXAMPLE.COM", TypeURL},
		{"www.example.com", TypeURL},
		{"paypa1-login.com/verify", TypeURL}, // bare dotted token
		{"WIFI:T:WPA;S:HomeNet;P:secret;;", TypeWifi},
		{"wifi:t:nopass;s:Free;;", TypeWifi},
		{"SMSTO:+15550100:hello", TypeSMS},
		{"sms:+15550100", TypeSMS},
		{"tel:+15550100", TypeTel},
		{"TEL:+15550100", TypeTel},
		{"mailto:me@example.com", TypeEmail},
		{"MATMSG:TO:me@example.com;;", TypeEmail},
		{"BEGIN:VCARD\nVERSION:3.0\nEND:VCARD", TypeVCard},
		{"intent://scan/#Intent;end", TypeDeeplink},
		{"market://details?id=com.evil.app", TypeDeeplink},
		{"just some text", TypeText},
		{"", TypeEmpty},
		{"   \n\t ", TypeEmpty},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// A URL whose path mentions vcard is still a URL; prefix order decides.
	if got := Classify("https://example.com/vcard"); got != TypeURL {
		t.Errorf("Classify = %s, want url", got)
	}
}

func TestParseWifi(t *testing.T) {
	cfg := ParseWifi("WIFI:T:WPA;S:HomeNet;P:correcthorse;H:true;;")
	if cfg.Auth != "WPA" || cfg.SSID != "HomeNet" || !cfg.PasswordPresent || cfg.Hidden != "true" {
		t.Errorf("parsed = %+v", cfg)
	}

	cfg = ParseWifi("WIFI:T:nopass;S:FreeAirport;;")
	if cfg.Auth != "nopass" || cfg.PasswordPresent {
		t.Errorf("open network parsed = %+v", cfg)
	}

	cfg = ParseWifi("WIFI:S:NoAuthField;;")
	if cfg.Auth != "" || cfg.SSID != "NoAuthField" {
		t.Errorf("missing T field parsed = %+v", cfg)
	}

	if cfg := ParseWifi("tel:+15550100"); cfg != (WifiConfig{}) {
		t.Errorf("non-wifi payload must yield zero config, got %+v", cfg)
	}
}

func TestExtractEmbeddedURL(t *testing.T) {
	card := "BEGIN:VCARD\nVERSION:3.0\nFN:Support\nURL;TYPE=WORK:http://paypa1-login.com/verify\nEND:VCARD"
	u, ok := ExtractEmbeddedURL(card)
	if !ok || u != "http://paypa1-login.com/verify" {
		t.Errorf("vcard URL = %q ok=%v", u, ok)
	}

	u, ok = ExtractEmbeddedURL("claim your prize at https://win.example-prizes.net/now. Hurry!")
	if !ok || u != "https://win.example-prizes.net/now" {
		t.Errorf("loose URL = %q ok=%v (trailing punctuation must be stripped)", u, ok)
	}

	if _, ok := ExtractEmbeddedURL("no links here"); ok {
		t.Errorf("text without URLs must not extract")
	}
}

func TestNormalizeFoldsFullwidth(t *testing.T) {
	// Fullwidth "ｈｔｔｐ" folds to ASCII under NFKC.
	in := "ｈｔｔｐ://evil.test"
	if got := Normalize(in); got != "http://evil.test" {
		t.Errorf("Normalize(%q) = %q", in, got)
	}
}
