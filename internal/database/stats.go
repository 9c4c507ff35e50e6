package database

import (
	"time"

	"gorm.io/gorm"
)

// RenderStats holds statistics about the render audit log
type RenderStats struct {
	TotalRenders      int64            `json:"total_renders"`
	FailedRenders     int64            `json:"failed_renders"`
	TotalBytes        int64            `json:"total_bytes"`
	AverageDurationMs float64          `json:"average_duration_ms"`
	ByFormat          map[string]int64 `json:"by_format"`
	ByChart           map[string]int64 `json:"by_chart"`
	ByErrorCategory   map[string]int64 `json:"by_error_category,omitempty"`
	Since             *time.Time       `json:"since,omitempty"`
}

type groupCount struct {
	GroupKey string
	Count    int64
}

// GetRenderStats returns render statistics for entries created at or after
// since. A zero since covers everything.
func GetRenderStats(db *gorm.DB, since time.Time) (*RenderStats, error) {
	stats := &RenderStats{}
	scope := func() *gorm.DB {
		q := db.Model(&RenderLog{})
		if !since.IsZero() {
			q = q.Where("created_at >= ?", since)
		}
		return q
	}
	if !since.IsZero() {
		stats.Since = &since
	}

	if err := scope().Count(&stats.TotalRenders).Error; err != nil {
		return nil, err
	}
	if err := scope().Where("success = ?", false).Count(&stats.FailedRenders).Error; err != nil {
		return nil, err
	}
	if err := scope().Select("COALESCE(SUM(bytes), 0)").Scan(&stats.TotalBytes).Error; err != nil {
		return nil, err
	}
	if err := scope().Select("COALESCE(AVG(duration_ms), 0)").Scan(&stats.AverageDurationMs).Error; err != nil {
		return nil, err
	}

	var err error
	if stats.ByFormat, err = countBy(scope(), "format"); err != nil {
		return nil, err
	}
	if stats.ByChart, err = countBy(scope(), "chart"); err != nil {
		return nil, err
	}
	if stats.ByErrorCategory, err = countBy(scope().Where("success = ?", false), "error_category"); err != nil {
		return nil, err
	}
	return stats, nil
}

func countBy(q *gorm.DB, column string) (map[string]int64, error) {
	var rows []groupCount
	err := q.Select(column + " AS group_key, COUNT(*) AS count").Group(column).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.GroupKey] = r.Count
	}
	return out, nil
}

// CleanupOldData removes render logs older than retention and returns how
// many were deleted.
func CleanupOldData(db *gorm.DB, retention time.Duration) (int64, error) {
	res := db.Where("created_at < ?", time.Now().Add(-retention)).Delete(&RenderLog{})
	return res.RowsAffected, res.Error
}
