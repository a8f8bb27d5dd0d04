package graph

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// Page is the subset of a page object the source reads
type Page struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FanCount int    `json:"fan_count"`
	Posts    struct {
		Data []Post `json:"data"`
	} `json:"posts"`
}

type summaryCount struct {
	Summary struct {
		TotalCount int `json:"total_count"`
	} `json:"summary"`
}

// Post is one recent page post with its interaction counts
type Post struct {
	ID          string       `json:"id"`
	Message     string       `json:"message"`
	CreatedTime string       `json:"created_time"`
	Likes       summaryCount `json:"likes"`
	Comments    summaryCount `json:"comments"`
	Shares      struct {
		Count int `json:"count"`
	} `json:"shares"`
}

// Interactions returns likes, comments and shares
func (p Post) Interactions() (likes, comments, shares int) {
	return p.Likes.Summary.TotalCount, p.Comments.Summary.TotalCount, p.Shares.Count
}

// Emotion classifies a post by its interaction profile
func (p Post) Emotion() metrics.Emotion {
	likes, comments, _ := p.Interactions()
	switch {
	case likes > 100:
		return metrics.EmotionPositive
	case comments > 50:
		return metrics.EmotionDiscussion
	default:
		return metrics.EmotionNeutral
	}
}

var hashtagRE = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

const maxTrendingTopics = 5

// Analyze turns a page snapshot into a social record
func Analyze(now time.Time, page Page) metrics.SocialMetrics {
	out := metrics.SocialMetrics{
		FanCount:        page.FanCount,
		DominantEmotion: metrics.EmotionNeutral,
		Timestamp:       now,
	}

	var likesTotal, commentsTotal, sharesTotal int
	counts := make(map[metrics.Emotion]int)
	var order []metrics.Emotion
	positives := 0

	for _, post := range page.Posts.Data {
		likes, comments, shares := post.Interactions()
		likesTotal += likes
		commentsTotal += comments
		sharesTotal += shares

		e := post.Emotion()
		if counts[e] == 0 {
			order = append(order, e)
		}
		counts[e]++
		if e == metrics.EmotionPositive {
			positives++
		}
	}

	engagement := likesTotal + commentsTotal + sharesTotal
	out.RecentEngagement = engagement
	fans := page.FanCount
	if fans < 1 {
		fans = 1
	}
	out.EngagementIntensity = math.Min(100, float64(engagement)/float64(fans)*1000)

	if n := len(page.Posts.Data); n > 0 {
		out.SentimentPolarity = float64(positives)/float64(n)*2 - 1
		best := 0
		for _, e := range order {
			if counts[e] > best {
				best = counts[e]
				out.DominantEmotion = e
			}
		}
	}
	if engagement > 0 {
		out.ConflictMetric = float64(commentsTotal) / float64(engagement)
	}
	out.TrendingTopics = trendingTopics(page.Posts.Data)

	return out.Normalize()
}

func trendingTopics(posts []Post) []metrics.TrendingTopic {
	counts := make(map[string]int)
	for _, p := range posts {
		for _, m := range hashtagRE.FindAllStringSubmatch(p.Message, -1) {
			counts[strings.ToLower(m[1])]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	topics := make([]metrics.TrendingTopic, 0, len(counts))
	for topic, n := range counts {
		topics = append(topics, metrics.TrendingTopic{Topic: topic, MentionCount: n})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].MentionCount != topics[j].MentionCount {
			return topics[i].MentionCount > topics[j].MentionCount
		}
		return topics[i].Topic < topics[j].Topic
	})
	if len(topics) > maxTrendingTopics {
		topics = topics[:maxTrendingTopics]
	}
	return topics
}
