package database

import (
	"embed"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

//go:embed triggers/*.sql
var triggerFiles embed.FS

// ExecuteTriggers installs the store-level guards for the current dialect.
// Statements in the trigger files are separated by a line holding "//".
func ExecuteTriggers(db *gorm.DB, log logrus.FieldLogger) error {
	dialect := db.Dialector.Name()
	triggerSQL, err := triggerFiles.ReadFile("triggers/" + dialect + ".sql")
	if err != nil {
		return fmt.Errorf("no trigger set for dialect %q: %w", dialect, err)
	}

	for _, stmt := range splitStatements(string(triggerSQL)) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("execute trigger statement %q: %w", firstLine(stmt), err)
		}
	}

	names, err := ListTriggers(db)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"dialect": dialect, "triggers": names}).Info("triggers installed")
	return nil
}

// ListTriggers returns the names of the triggers defined on order_trackings.
func ListTriggers(db *gorm.DB) ([]string, error) {
	var query string
	switch db.Dialector.Name() {
	case "sqlite":
		query = `SELECT name FROM sqlite_master WHERE type = 'trigger' AND tbl_name = 'order_trackings' ORDER BY name`
	case "mysql":
		query = `SELECT TRIGGER_NAME FROM information_schema.triggers
			WHERE TRIGGER_SCHEMA = DATABASE() AND EVENT_OBJECT_TABLE = 'order_trackings' ORDER BY TRIGGER_NAME`
	case "postgres":
		query = `SELECT DISTINCT trigger_name FROM information_schema.triggers
			WHERE trigger_schema = current_schema() AND event_object_table = 'order_trackings' ORDER BY trigger_name`
	default:
		return nil, fmt.Errorf("unsupported dialect %q", db.Dialector.Name())
	}

	var names []string
	if err := db.Raw(query).Scan(&names).Error; err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	return names, nil
}

func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, "//") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || stmt == ";" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
