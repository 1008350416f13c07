// Package analytics derives read-only views from a corpus: per-platform
// counts, trending tags and an author influence ranking.
package analytics

import (
	"sort"
	"time"

	"github.com/Luismorlan/honeybee/model"
)

const (
	trendingWindow = 7 * 24 * time.Hour
	// A tag use inside the trending window counts this much more than an
	// older one.
	recentWeight = 3.0
)

type PlatformStat struct {
	PlatformID      string     `json:"platformId"`
	PlatformName    string     `json:"platformName"`
	PlatformType    string     `json:"platformType"`
	ArticleCount    int        `json:"articleCount"`
	LatestPublished *time.Time `json:"latestPublished,omitempty"`
}

type TagStat struct {
	Tag    string  `json:"tag"`
	Count  int     `json:"count"`
	Recent int     `json:"recent"`
	Score  float64 `json:"score"`
}

type AuthorStat struct {
	Name         string   `json:"name"`
	PlatformID   string   `json:"platformId"`
	Company      string   `json:"company"`
	Expertise    []string `json:"expertise"`
	ArticleCount int      `json:"articleCount"`
	TotalViews   int      `json:"totalViews"`
	TotalLikes   int      `json:"totalLikes"`
	Influence    float64  `json:"influence"`
}

// PlatformStats counts articles per platform, most productive first.
func PlatformStats(articles []model.Article) []PlatformStat {
	byID := map[string]*PlatformStat{}
	for _, a := range articles {
		stat, ok := byID[a.Platform.ID]
		if !ok {
			stat = &PlatformStat{
				PlatformID:   a.Platform.ID,
				PlatformName: a.Platform.Name,
				PlatformType: string(a.Platform.Type),
			}
			byID[a.Platform.ID] = stat
		}
		stat.ArticleCount++
		if stat.LatestPublished == nil || a.PublishedAt.After(*stat.LatestPublished) {
			published := a.PublishedAt
			stat.LatestPublished = &published
		}
	}

	res := make([]PlatformStat, 0, len(byID))
	for _, stat := range byID {
		res = append(res, *stat)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ArticleCount != res[j].ArticleCount {
			return res[i].ArticleCount > res[j].ArticleCount
		}
		return res[i].PlatformID < res[j].PlatformID
	})
	return res
}

// TrendingTags scores tags by use, weighting uses published within the last
// seven days. n <= 0 returns every tag.
func TrendingTags(articles []model.Article, n int, now time.Time) []TagStat {
	byTag := map[string]*TagStat{}
	for _, a := range articles {
		recent := now.Sub(a.PublishedAt) <= trendingWindow
		for _, tag := range a.Tags {
			stat, ok := byTag[tag]
			if !ok {
				stat = &TagStat{Tag: tag}
				byTag[tag] = stat
			}
			stat.Count++
			stat.Score++
			if recent {
				stat.Recent++
				stat.Score += recentWeight - 1
			}
		}
	}

	res := make([]TagStat, 0, len(byTag))
	for _, stat := range byTag {
		res = append(res, *stat)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		return res[i].Tag < res[j].Tag
	})
	if n > 0 && len(res) > n {
		res = res[:n]
	}
	return res
}

// AuthorRanking orders authors by influence:
//
//	articles*10 + views/1000 + likes/100
//
// Generated engagement numbers are left out unless includeSynthetic is set.
func AuthorRanking(articles []model.Article, n int, includeSynthetic bool) []AuthorStat {
	views := map[model.AuthorKey]int{}
	likes := map[model.AuthorKey]int{}
	for _, a := range articles {
		e := a.Engagement
		if e == nil || (e.Synthetic && !includeSynthetic) {
			continue
		}
		key := a.Author.Key()
		if e.Views != nil {
			views[key] += *e.Views
		}
		if e.Likes != nil {
			likes[key] += *e.Likes
		}
	}

	authors := model.RollupAuthors(articles)
	res := make([]AuthorStat, 0, len(authors))
	for _, author := range authors {
		stat := AuthorStat{
			Name:         author.Name,
			PlatformID:   author.Key.PlatformID,
			Company:      author.Company,
			Expertise:    author.Expertise,
			ArticleCount: author.ArticleCount,
			TotalViews:   views[author.Key],
			TotalLikes:   likes[author.Key],
		}
		stat.Influence = Influence(stat.ArticleCount, stat.TotalViews, stat.TotalLikes)
		res = append(res, stat)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Influence != res[j].Influence {
			return res[i].Influence > res[j].Influence
		}
		return res[i].Name < res[j].Name
	})
	if n > 0 && len(res) > n {
		res = res[:n]
	}
	return res
}

func Influence(articleCount, views, likes int) float64 {
	return float64(articleCount)*10 + float64(views)/1000 + float64(likes)/100
}
