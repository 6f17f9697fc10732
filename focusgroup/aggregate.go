package focusgroup

import (
	"math"
	"sort"
	"strings"

	"github.com/BaSui01/contentcycle/store"
	"github.com/BaSui01/contentcycle/types"
)

const (
	// topN 高频喜欢/不喜欢条目的截断长度
	topN = 5
	// maxExpectedStdDev 1-10 评分尺度下的标准差归一化上限
	maxExpectedStdDev = 3.0
)

// Aggregate 把一轮循环的反馈集合归约为聚合视图。
// 纯函数：不修改输入，且与输入顺序无关（内部按参与者 ID 规范化）。
// 主题列表留空，由综述步骤完成后补写。
func Aggregate(items []store.Feedback) store.AggregatedFeedback {
	canon := make([]store.Feedback, len(items))
	copy(canon, items)
	sort.SliceStable(canon, func(i, j int) bool {
		return canon[i].ParticipantID < canon[j].ParticipantID
	})

	var agg store.AggregatedFeedback
	if len(canon) == 0 {
		return agg
	}

	ratings := make([]float64, 0, len(canon))
	var likes, dislikes []string
	for _, f := range canon {
		ratings = append(ratings, float64(f.Rating))
		likes = append(likes, f.Likes...)
		dislikes = append(dislikes, f.Dislikes...)

		switch {
		case f.Rating >= 1 && f.Rating <= 3:
			agg.RatingDistribution.Low++
		case f.Rating >= 4 && f.Rating <= 6:
			agg.RatingDistribution.Mid++
		case f.Rating >= 7 && f.Rating <= 10:
			agg.RatingDistribution.High++
		}
	}

	agg.AverageRating = mean(ratings)
	agg.TopLikes = topItems(likes, topN)
	agg.TopDislikes = topItems(dislikes, topN)
	agg.ConvergenceScore = ConvergenceScore(ratings)
	return agg
}

// topItems 按频次降序截取前 n 个条目，并列时保持首次出现的先后。
func topItems(items []string, n int) []string {
	type entry struct {
		value     string
		count     int
		firstSeen int
	}
	index := make(map[string]*entry)
	order := make([]*entry, 0)
	for i, item := range items {
		if e, ok := index[item]; ok {
			e.count++
			continue
		}
		e := &entry{value: item, count: 1, firstSeen: i}
		index[item] = e
		order = append(order, e)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].firstSeen < order[j].firstSeen
	})
	if len(order) > n {
		order = order[:n]
	}
	out := make([]string, 0, len(order))
	for _, e := range order {
		out = append(out, e.value)
	}
	return out
}

// ConvergenceScore 评审一致性，1 - stdDev/3 截断到 [0,1]。
// 单人评审不存在分歧，得分为 1。
func ConvergenceScore(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	if len(ratings) == 1 {
		return 1
	}
	avg := mean(ratings)
	var variance float64
	for _, r := range ratings {
		variance += (r - avg) * (r - avg)
	}
	variance /= float64(len(ratings))
	stdDev := math.Sqrt(variance)

	score := 1 - stdDev/maxExpectedStdDev
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return math.Round(score*100) / 100
}

// DeriveThemes 从反馈的喜欢/不喜欢条目提取主题。
// 同一主题（小写归一）同时出现在两侧时情感为 neutral。
// 结果按频次降序、主题名升序排列，与输入顺序无关。
func DeriveThemes(items []store.Feedback) []store.FeedbackTheme {
	type themeEntry struct {
		liked    int
		disliked int
	}
	themes := make(map[string]*themeEntry)
	for _, f := range items {
		for _, like := range f.Likes {
			key := strings.ToLower(like)
			if themes[key] == nil {
				themes[key] = &themeEntry{}
			}
			themes[key].liked++
		}
		for _, dislike := range f.Dislikes {
			key := strings.ToLower(dislike)
			if themes[key] == nil {
				themes[key] = &themeEntry{}
			}
			themes[key].disliked++
		}
	}

	out := make([]store.FeedbackTheme, 0, len(themes))
	for name, e := range themes {
		sentiment := types.SentimentNeutral
		switch {
		case e.liked > 0 && e.disliked == 0:
			sentiment = types.SentimentPositive
		case e.disliked > 0 && e.liked == 0:
			sentiment = types.SentimentNegative
		}
		out = append(out, store.FeedbackTheme{
			Theme:     name,
			Sentiment: sentiment,
			Frequency: e.liked + e.disliked,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Theme < out[j].Theme
	})
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
