// Package links resolves [[Title]] references between posts.
package links

import (
	"regexp"
	"strings"

	"garden/internal/models"
)

var wikiRef = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)

// Extract returns the titles referenced in content, in order of appearance.
func Extract(content string) []string {
	var out []string
	for _, m := range wikiRef.FindAllStringSubmatch(content, -1) {
		if t := strings.TrimSpace(m[1]); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Backlinks returns the posts in all, other than target itself, whose
// content references target by title. Order follows all.
func Backlinks(target models.Post, all []models.Post) []models.Post {
	title := strings.TrimSpace(target.Title)
	if title == "" {
		return nil
	}
	var out []models.Post
	for _, p := range all {
		if p.ID == target.ID {
			continue
		}
		for _, ref := range Extract(p.Content) {
			if ref == title {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
