package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/community-portal/internal/logger"
)

// StatsCollector reads PostgreSQL statistics views for the portal schema
type StatsCollector struct {
	db  *gorm.DB
	log *log.Logger
}

// NewStatsCollector creates a statistics collector
func NewStatsCollector(db *gorm.DB) *StatsCollector {
	return &StatsCollector{
		db:  db,
		log: logger.Repository("stats"),
	}
}

// Hint is a maintenance suggestion derived from the statistics
type Hint struct {
	Table      string `json:"table,omitempty"`
	Operation  string `json:"operation"`
	Suggestion string `json:"suggestion"`
	Priority   string `json:"priority"`
}

// DatabaseStats holds a snapshot of table, index and connection statistics
type DatabaseStats struct {
	CollectedAt     time.Time       `json:"collected_at"`
	Tables          []TableStats    `json:"tables"`
	Indexes         []IndexUsage    `json:"indexes"`
	ConnectionStats ConnectionStats `json:"connections"`
	Hints           []Hint          `json:"hints"`
}

// TableStats represents table statistics
type TableStats struct {
	TableName    string     `json:"table_name"`
	LiveRows     int64      `json:"live_rows"`
	DeadRows     int64      `json:"dead_rows"`
	TableSize    string     `json:"table_size"`
	IndexSize    string     `json:"index_size"`
	LastAnalyzed *time.Time `json:"last_analyzed"`
}

// IndexUsage represents index usage statistics
type IndexUsage struct {
	TableName  string `json:"table_name"`
	IndexName  string `json:"index_name"`
	IndexScans int64  `json:"index_scans"`
	TableScans int64  `json:"table_scans"`
}

// ConnectionStats represents server side connection statistics
type ConnectionStats struct {
	TotalConnections   int     `json:"total_connections"`
	ActiveConnections  int     `json:"active_connections"`
	IdleConnections    int     `json:"idle_connections"`
	MaxConnections     int     `json:"max_connections"`
	ConnectionsPercent float64 `json:"connections_percent"`
}

// Collect gathers every statistic; a failing view is logged and left empty
func (s *StatsCollector) Collect(ctx context.Context) (*DatabaseStats, error) {
	s.log.Debug("Collecting database statistics...")

	stats := &DatabaseStats{CollectedAt: time.Now().UTC()}
	db := s.db.WithContext(ctx)

	if err := db.Raw(`
		SELECT
			relname AS table_name,
			n_live_tup AS live_rows,
			n_dead_tup AS dead_rows,
			pg_size_pretty(pg_total_relation_size(relid)) AS table_size,
			pg_size_pretty(pg_indexes_size(relid)) AS index_size,
			GREATEST(last_analyze, last_autoanalyze) AS last_analyzed
		FROM pg_stat_user_tables
		ORDER BY pg_total_relation_size(relid) DESC
	`).Scan(&stats.Tables).Error; err != nil {
		s.log.Warn("Failed to get table stats", "error", err)
	}

	if err := db.Raw(`
		SELECT
			put.relname AS table_name,
			pui.indexrelname AS index_name,
			pui.idx_scan AS index_scans,
			put.seq_scan AS table_scans
		FROM pg_stat_user_indexes pui
		JOIN pg_stat_user_tables put ON pui.relid = put.relid
		ORDER BY pui.idx_scan ASC
	`).Scan(&stats.Indexes).Error; err != nil {
		s.log.Warn("Failed to get index usage", "error", err)
	}

	row := db.Raw(`
		SELECT
			count(*),
			count(*) FILTER (WHERE state = 'active'),
			count(*) FILTER (WHERE state = 'idle'),
			(SELECT setting::int FROM pg_settings WHERE name = 'max_connections')
		FROM pg_stat_activity
		WHERE datname = current_database()
	`).Row()
	conn := &stats.ConnectionStats
	if err := row.Scan(&conn.TotalConnections, &conn.ActiveConnections, &conn.IdleConnections, &conn.MaxConnections); err != nil {
		s.log.Warn("Failed to get connection stats", "error", err)
	} else if conn.MaxConnections > 0 {
		conn.ConnectionsPercent = float64(conn.TotalConnections) / float64(conn.MaxConnections) * 100
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.Hints = hintsFor(stats)
	s.log.Info("Database statistics collected",
		"tables", len(stats.Tables),
		"indexes", len(stats.Indexes),
		"hints", len(stats.Hints))
	return stats, nil
}

func hintsFor(stats *DatabaseStats) []Hint {
	hints := []Hint{}

	for _, index := range stats.Indexes {
		if index.IndexScans == 0 && index.TableScans > 1000 {
			hints = append(hints, Hint{
				Table:      index.TableName,
				Operation:  "DROP_INDEX",
				Suggestion: fmt.Sprintf("index %s on %s was never used while the table was scanned %d times", index.IndexName, index.TableName, index.TableScans),
				Priority:   "Low",
			})
		}
	}

	for _, table := range stats.Tables {
		if table.LastAnalyzed == nil || stats.CollectedAt.Sub(*table.LastAnalyzed) > 7*24*time.Hour {
			hints = append(hints, Hint{
				Table:      table.TableName,
				Operation:  "ANALYZE",
				Suggestion: fmt.Sprintf("run ANALYZE %s to refresh planner statistics", table.TableName),
				Priority:   "Medium",
			})
		}
		if table.LiveRows > 0 && table.DeadRows > table.LiveRows/5 {
			hints = append(hints, Hint{
				Table:      table.TableName,
				Operation:  "VACUUM",
				Suggestion: fmt.Sprintf("%s has %d dead rows for %d live rows", table.TableName, table.DeadRows, table.LiveRows),
				Priority:   "Medium",
			})
		}
	}

	if stats.ConnectionStats.ConnectionsPercent > 80 {
		hints = append(hints, Hint{
			Operation:  "CONNECTION_POOL",
			Suggestion: fmt.Sprintf("connection usage is %.2f%% of max_connections", stats.ConnectionStats.ConnectionsPercent),
			Priority:   "High",
		})
	}

	return hints
}
