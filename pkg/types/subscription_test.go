package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Subscription
		wantErr bool
	}{
		{"valid", Subscription{Name: "q", Keywords: []string{"quantum"}}, false},
		{"with categories", Subscription{Name: "q", Keywords: []string{"a"}, Categories: []string{"quant-ph"}}, false},
		{"empty name", Subscription{Name: "  ", Keywords: []string{"a"}}, true},
		{"no keywords", Subscription{Name: "q"}, true},
		{"blank keyword", Subscription{Name: "q", Keywords: []string{"a", " "}}, true},
		{"blank category", Subscription{Name: "q", Keywords: []string{"a"}, Categories: []string{""}}, true},
		{"blank source", Subscription{Name: "q", Keywords: []string{"a"}, Sources: []string{""}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Errorf("Validate() = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSourceNames(t *testing.T) {
	assert.Equal(t, []string{DefaultSource}, Subscription{}.SourceNames())
	assert.Equal(t, []string{"a", "b"}, Subscription{Sources: []string{"a", "b"}}.SourceNames())
}

func TestActiveSubscriptions(t *testing.T) {
	subs := []Subscription{
		{Name: "one", Enabled: true},
		{Name: "two"},
		{Name: "three", Enabled: true},
	}
	active := ActiveSubscriptions(subs)
	if assert.Len(t, active, 2) {
		assert.Equal(t, "one", active[0].Name)
		assert.Equal(t, "three", active[1].Name)
	}
	assert.Empty(t, ActiveSubscriptions(nil))
}

func TestFindSubscription(t *testing.T) {
	cfg := Config{Subscriptions: []Subscription{{Name: "quantum"}, {Name: "ml"}}}

	sub, ok := cfg.FindSubscription("ml")
	assert.True(t, ok)
	assert.Equal(t, "ml", sub.Name)

	_, ok = cfg.FindSubscription("missing")
	assert.False(t, ok)
}
