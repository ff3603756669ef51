package config

import (
	"context"
	"fmt"

	"github.com/platinummonkey/masthead/pkg/site"
)

// SiteSeed describes the users, content and options of an in-memory site
type SiteSeed struct {
	Users      []site.User            `yaml:"users"`
	Categories map[int64]string       `yaml:"categories"`
	Posts      []site.Post            `yaml:"posts"`
	Options    map[string]interface{} `yaml:"options"`
}

// Apply loads the seed into m
func (s SiteSeed) Apply(ctx context.Context, m *site.Memory) error {
	for _, u := range s.Users {
		if u.ID <= 0 {
			return fmt.Errorf("seed user %q has no id", u.Login)
		}
		m.PutUser(u)
	}
	for id, name := range s.Categories {
		m.PutCategory(id, name)
	}
	for _, p := range s.Posts {
		if p.ID <= 0 {
			return fmt.Errorf("seed post %q has no id", p.Title)
		}
		m.PutPost(p)
	}
	for key, value := range s.Options {
		if err := m.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to seed option %s: %w", key, err)
		}
	}
	return nil
}
