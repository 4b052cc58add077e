package nutrition

import (
	"context"

	"go.uber.org/zap"
)

// DetectionStatus tells apart the outcomes of country auto-detection.
type DetectionStatus int

const (
	// DetectionSkipped means no feed ids were supplied and nothing was fetched.
	DetectionSkipped DetectionStatus = iota
	// DetectionFound means the first feed carried a country reference.
	DetectionFound
	// DetectionMissing means the feed was fetched but has no country reference.
	DetectionMissing
	// DetectionFailed means the feed lookup itself failed.
	DetectionFailed
)

func (s DetectionStatus) String() string {
	switch s {
	case DetectionSkipped:
		return "skipped"
	case DetectionFound:
		return "found"
	case DetectionMissing:
		return "missing"
	case DetectionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Detection is the result of DetectCountry. Err is set only for DetectionFailed.
type Detection struct {
	Status    DetectionStatus
	CountryID string
	FeedID    string
	Err       error
}

// Found reports whether a country id was detected.
func (d Detection) Found() bool {
	return d.Status == DetectionFound && d.CountryID != ""
}

// DetectCountry infers the country from the first feed id. It never fails: lookup
// errors are logged and reported as DetectionFailed.
func (c *Client) DetectCountry(ctx context.Context, feedIDs []string) Detection {
	if len(feedIDs) == 0 {
		return Detection{Status: DetectionSkipped}
	}

	feedID := feedIDs[0]
	record, err := c.GetFeedByID(ctx, feedID)
	if err != nil {
		c.logger.Warn("country auto-detection failed", zap.String("feed_id", feedID), zap.Error(err))
		return Detection{Status: DetectionFailed, FeedID: feedID, Err: err}
	}
	if record.CountryID == "" {
		return Detection{Status: DetectionMissing, FeedID: feedID}
	}

	c.logger.Debug("country auto-detected", zap.String("feed_id", feedID), zap.String("country_id", record.CountryID))
	return Detection{Status: DetectionFound, FeedID: feedID, CountryID: record.CountryID}
}
