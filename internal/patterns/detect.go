package patterns

import (
	"strings"

	"filmdex/internal/titleclean"
	"filmdex/pkg/models"
)

// A segment end must repeat across at least this share of a channel's
// separator-bearing titles to be called boilerplate.
const boilerplateShare = 0.6

// Detect learns a channel's title pattern from a sample of its raw upload
// titles. The work title varies per upload while channel boilerplate
// repeats, so the end whose segment keeps recurring is metadata and the
// title sits at the other end. Returns nil when the sample is empty.
func Detect(channelID string, rawTitles []string) *models.ChannelTitlePattern {
	if len(rawTitles) == 0 {
		return nil
	}

	withSep := 0
	firstCounts := make(map[string]int)
	lastCounts := make(map[string]int)

	for _, raw := range rawTitles {
		if !strings.Contains(raw, titleclean.Separator) {
			continue
		}
		withSep++

		parts := strings.Split(raw, titleclean.Separator)
		first := titleclean.Normalize(parts[0])
		last := titleclean.Normalize(parts[len(parts)-1])
		if first != "" {
			firstCounts[first]++
		}
		if last != "" {
			lastCounts[last]++
		}
	}

	sepShare := float64(withSep) / float64(len(rawTitles))
	if sepShare < 0.5 {
		return &models.ChannelTitlePattern{
			ChannelID:    channelID,
			HasSeparator: false,
			Position:     models.TitleEither,
			Confidence:   1 - sepShare,
			SampleCount:  len(rawTitles),
		}
	}

	firstTop := topShare(firstCounts, withSep)
	lastTop := topShare(lastCounts, withSep)

	p := &models.ChannelTitlePattern{
		ChannelID:    channelID,
		HasSeparator: true,
		Position:     models.TitleEither,
		Confidence:   sepShare / 2, // weak default until an end proves itself
		SampleCount:  len(rawTitles),
	}

	switch {
	case firstTop >= boilerplateShare && firstTop > lastTop:
		// repeating first segment is boilerplate, title is at the end
		p.Position = models.TitleLast
		p.Confidence = firstTop
	case lastTop >= boilerplateShare && lastTop > firstTop:
		p.Position = models.TitleFirst
		p.Confidence = lastTop
	}
	return p
}

func topShare(counts map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	top := 0
	for _, n := range counts {
		if n > top {
			top = n
		}
	}
	return float64(top) / float64(total)
}
