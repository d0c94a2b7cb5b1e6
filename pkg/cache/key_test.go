package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "endpoint only",
			key:  Key{Endpoint: "/iss/engines.json"},
			want: "iss:iss/engines.json",
		},
		{
			name: "with params sorted",
			key: Key{
				Endpoint: "/iss/securities.json",
				Params:   url.Values{"start": {"0"}, "q": {"SBER"}},
			},
			want: "iss:iss/securities.json:q=SBER:start=0",
		},
		{
			name: "empty endpoint",
			key:  Key{},
			want: "iss",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Same logical request, same key, regardless of param insertion order.
func TestKey_String_Deterministic(t *testing.T) {
	a := Key{Endpoint: "/iss/securities.json", Params: url.Values{}}
	a.Params.Set("q", "SBER")
	a.Params.Set("limit", "100")
	a.Params.Set("start", "0")

	b := Key{Endpoint: "/iss/securities.json", Params: url.Values{}}
	b.Params.Set("start", "0")
	b.Params.Set("limit", "100")
	b.Params.Set("q", "SBER")

	if a.String() != b.String() {
		t.Errorf("keys differ: %q vs %q", a.String(), b.String())
	}
}
