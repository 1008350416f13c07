package normalizer

import (
	"strings"

	"github.com/Luismorlan/honeybee/model"
)

// categoryKeywords is checked in order, the first category with a hit wins.
var categoryKeywords = []struct {
	category model.Category
	keywords []string
}{
	{model.CategoryAI, []string{"machine learning", "deep learning", "llm", "gpt", "ai", "ml", "인공지능", "머신러닝", "딥러닝", "추천 시스템"}},
	{model.CategorySecurity, []string{"security", "vulnerability", "auth", "oauth", "보안", "취약점", "인증"}},
	{model.CategoryDevOps, []string{"kubernetes", "k8s", "docker", "devops", "terraform", "ci/cd", "infra", "observability", "배포", "인프라", "모니터링"}},
	{model.CategoryData, []string{"data", "spark", "kafka", "sql", "analytics", "pipeline", "데이터", "분석"}},
	{model.CategoryMobile, []string{"android", "ios", "swift", "kotlin multiplatform", "flutter", "react native", "mobile", "모바일", "안드로이드"}},
	{model.CategoryFrontend, []string{"frontend", "react", "vue", "javascript", "typescript", "css", "next.js", "web", "프론트엔드", "웹"}},
	{model.CategoryBackend, []string{"backend", "spring", "java", "go", "golang", "kotlin", "database", "api", "msa", "server", "백엔드", "서버"}},
	{model.CategoryCareer, []string{"career", "interview", "hiring", "회고", "커리어", "면접", "채용", "신입", "성장"}},
}

// InferCategory guesses a category from tags first, then from the title.
// It returns fallback when nothing matches, and general when fallback is not
// a taxonomy value.
func InferCategory(title string, tags []string, fallback model.Category) model.Category {
	for _, entry := range categoryKeywords {
		for _, tag := range tags {
			for _, kw := range entry.keywords {
				if tag == kw {
					return entry.category
				}
			}
		}
	}

	words := tokenize(title)
	lowerTitle := strings.ToLower(title)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(kw, " ") || !isASCII(kw) {
				if strings.Contains(lowerTitle, kw) {
					return entry.category
				}
				continue
			}
			if words[kw] {
				return entry.category
			}
		}
	}

	if fallback.IsValid() {
		return fallback
	}
	return model.CategoryGeneral
}

func tokenize(s string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r == '.' || r == '/' || r == '-' || r == '+' || r == '#' ||
			(r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127)
	}) {
		words[strings.Trim(w, ".-/")] = true
	}
	return words
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
