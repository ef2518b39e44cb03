// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultSource is used when a subscription lists no sources.
const DefaultSource = "arxiv"

// Subscription is a named watch definition: papers matching any of the
// keywords, restricted to the categories, fetched from the listed sources.
type Subscription struct {
	Name       string   `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Keywords   []string `json:"keywords" yaml:"keywords" mapstructure:"keywords" validate:"required,min=1,dive,required"`
	Sources    []string `json:"sources" yaml:"sources" mapstructure:"sources" validate:"dive,required"`
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories" validate:"dive,required"`
	Enabled    bool     `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the subscription's structure. Every failure wraps
// ErrConfiguration.
func (s Subscription) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: subscription name is empty", ErrConfiguration)
	}
	if len(s.Keywords) == 0 {
		return fmt.Errorf("%w: subscription %q has no keywords", ErrConfiguration, s.Name)
	}
	for i, kw := range s.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: subscription %q keyword %d is blank", ErrConfiguration, s.Name, i)
		}
	}
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: subscription %q: field %s failed %q", ErrConfiguration, s.Name, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: subscription %q: %w", ErrConfiguration, s.Name, err)
	}
	return nil
}

// SourceNames returns the subscription's sources, or DefaultSource when none
// are listed.
func (s Subscription) SourceNames() []string {
	if len(s.Sources) == 0 {
		return []string{DefaultSource}
	}
	return s.Sources
}

// ActiveSubscriptions returns the enabled subscriptions in configuration order.
func ActiveSubscriptions(subs []Subscription) []Subscription {
	active := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if s.Enabled {
			active = append(active, s)
		}
	}
	return active
}
