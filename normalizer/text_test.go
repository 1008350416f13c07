package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luismorlan/honeybee/model"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		raw, base, want string
	}{
		{"HTTPS://Toss.Tech/article/a/?utm_source=x&b=1#top", "", "https://toss.tech/article/a?b=1"},
		{"/post/1", "https://techblog.woowahan.com/", "https://techblog.woowahan.com/post/1"},
		{"//velog.io/@kim/post", "", "https://velog.io/@kim/post"},
		{"https://d2.naver.com:443/helloworld", "", "https://d2.naver.com/helloworld"},
		{"https://toss.tech/", "", "https://toss.tech/"},
	}
	for _, tc := range tests {
		got, err := CanonicalURL(tc.raw, tc.base)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, bad := range []string{"", "  ", "/relative", "mailto:a@b.c"} {
		_, err := CanonicalURL(bad, "")
		assert.ErrorIs(t, err, ErrMissingURL, bad)
	}
}

func TestHtmlToTextAndExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", HtmlToText("<p>a</p><script>x()</script><p>b<br>c</p>"))
	assert.Equal(t, "plain text", HtmlToText("  plain \n text "))

	long := strings.Repeat("가나다 ", 100)
	ex := Excerpt(long, 200)
	assert.LessOrEqual(t, len([]rune(ex)), 201)
	assert.True(t, strings.HasSuffix(ex, "…"))
	assert.Equal(t, "short", Excerpt("short", 200))
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, 1, ReadingTime(""))
	assert.Equal(t, 2, ReadingTime(strings.Repeat("word ", 201)))
	assert.Equal(t, 1, ReadingTime("짧은 글"))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"go", "kubernetes"}, NormalizeTags([]string{"#Go", "Kubernetes, go", ""}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}

func TestInferCategory(t *testing.T) {
	assert.Equal(t, model.CategoryFrontend, InferCategory("x", []string{"react"}, ""))
	assert.Equal(t, model.CategoryDevOps, InferCategory("Kubernetes 운영기", nil, ""))
	assert.Equal(t, model.CategoryAI, InferCategory("LLM 서빙 최적화", nil, model.CategoryBackend))
	assert.Equal(t, model.CategoryCareer, InferCategory("신입 개발자 회고", nil, ""))
	assert.Equal(t, model.CategoryMobile, InferCategory("무제", nil, model.CategoryMobile))
	assert.Equal(t, model.CategoryGeneral, InferCategory("무제", nil, "unknown"))
}
