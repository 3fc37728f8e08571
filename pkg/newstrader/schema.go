package newstrader

import "database/sql"

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS recommendations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset TEXT NOT NULL,
			ticker TEXT,
			isin TEXT,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			recommendation TEXT NOT NULL,
			recommended_quantity INTEGER NOT NULL DEFAULT 0,
			reasoning TEXT,
			quantity_reasoning TEXT,
			confidence TEXT,
			target_price REAL,
			stop_loss REAL,
			parse_failed INTEGER NOT NULL DEFAULT 0,
			missing_fields TEXT,
			allocation_pct REAL,
			position_value REAL,
			target_position REAL,
			currency TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	if err := exec(tx, `
		CREATE TABLE IF NOT EXISTS debug_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_recommendations_asset ON recommendations(asset)",
		"CREATE INDEX IF NOT EXISTS idx_recommendations_created ON recommendations(created_at)",
	}
	for _, idx := range indexes {
		if err := exec(tx, idx); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

func exec(tx *sql.Tx, query string) error {
	_, err := tx.Exec(query)
	return err
}
