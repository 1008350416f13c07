package model

import (
	"sort"
	"strings"
)

// AuthorRef is what an article knows about its author. Sources rarely expose a
// real author id, so ID is usually empty and the author is identified by
// (Name, PlatformID); two people with the same display name on the same
// platform collide.
type AuthorRef struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	PlatformID string `json:"platformId"`
}

type AuthorKey struct {
	Name       string
	PlatformID string
}

// Key prefers a source-provided id when there is one.
func (a AuthorRef) Key() AuthorKey {
	if a.ID != "" {
		return AuthorKey{Name: "id:" + a.ID, PlatformID: a.PlatformID}
	}
	return AuthorKey{Name: strings.ToLower(strings.TrimSpace(a.Name)), PlatformID: a.PlatformID}
}

// Author is a rollup over the corpus. ArticleCount is recomputed on every
// rollup and is not authoritative.
type Author struct {
	Key          AuthorKey `json:"-"`
	Name         string    `json:"name"`
	Company      string    `json:"company"`
	Expertise    []string  `json:"expertise"`
	ArticleCount int       `json:"articleCount"`
}

const maxExpertiseTags = 5

// RollupAuthors groups articles by author key. Company is the platform name,
// expertise is the author's most used tags. Articles without an author name
// are skipped. Result is ordered by article count, then name.
func RollupAuthors(articles []Article) []Author {
	byKey := map[AuthorKey]*Author{}
	tagCounts := map[AuthorKey]map[string]int{}
	order := []AuthorKey{}

	for _, a := range articles {
		if strings.TrimSpace(a.Author.Name) == "" {
			continue
		}
		key := a.Author.Key()
		author, ok := byKey[key]
		if !ok {
			author = &Author{Key: key, Name: strings.TrimSpace(a.Author.Name), Company: a.Platform.Name}
			byKey[key] = author
			tagCounts[key] = map[string]int{}
			order = append(order, key)
		}
		author.ArticleCount++
		for _, t := range a.Tags {
			tagCounts[key][t]++
		}
	}

	res := make([]Author, 0, len(order))
	for _, key := range order {
		author := byKey[key]
		author.Expertise = topTags(tagCounts[key], maxExpertiseTags)
		res = append(res, *author)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].ArticleCount != res[j].ArticleCount {
			return res[i].ArticleCount > res[j].ArticleCount
		}
		return res[i].Name < res[j].Name
	})
	return res
}

func topTags(counts map[string]int, n int) []string {
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
