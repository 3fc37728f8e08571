package newstrader

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// StoredRecommendation is one persisted resolution together with the
// portfolio numbers it was based on.
type StoredRecommendation struct {
	ID             int64          `json:"id"`
	Asset          string         `json:"asset"`
	Ticker         string         `json:"ticker,omitempty"`
	ISIN           string         `json:"isin,omitempty"`
	Provider       string         `json:"provider"`
	Model          string         `json:"model"`
	Result         Recommendation `json:"result"`
	AllocationPct  float64        `json:"allocation_pct"`
	PositionValue  Amount         `json:"position_value"`
	TargetPosition Amount         `json:"target_position"`
	Currency       string         `json:"currency"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SaveRecommendation persists one resolved recommendation. Degraded results
// are stored like any other; the parse_failed and missing_fields columns keep
// the degradation markers queryable.
func (c *Core) SaveRecommendation(ctx context.Context, asset AssetContext, portfolio PortfolioContext, provider, model string, rec Recommendation) (int64, error) {
	var missingFields any
	if len(rec.MissingFields) > 0 {
		data, err := json.Marshal(rec.MissingFields)
		if err != nil {
			return 0, WrapError(ErrCodeInternal, "failed to encode missing fields", err)
		}
		missingFields = string(data)
	}

	var id int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO recommendations (
				asset, ticker, isin, provider, model,
				recommendation, recommended_quantity, reasoning, quantity_reasoning, confidence,
				target_price, stop_loss, parse_failed, missing_fields,
				allocation_pct, position_value, target_position, currency
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			asset.Name, asset.Ticker, asset.ISIN, provider, model,
			rec.Action, rec.Quantity, rec.Reasoning, rec.QuantityReasoning, rec.Confidence,
			rec.TargetPrice, rec.StopLoss, rec.ParseFailed, missingFields,
			portfolio.AllocationPct, portfolio.PositionValue, portfolio.TargetPosition, portfolio.Currency,
		)
		if err != nil {
			return WrapError(ErrCodeDatabase, "failed to insert recommendation", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return WrapError(ErrCodeDatabase, "failed to read insert id", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const storedRecommendationColumns = `
	id, asset, ticker, isin, provider, model,
	recommendation, recommended_quantity, reasoning, quantity_reasoning, confidence,
	target_price, stop_loss, parse_failed, missing_fields,
	allocation_pct, position_value, target_position, currency, created_at
`

// GetLatestRecommendations returns the most recent stored recommendation per
// asset, ordered by asset name.
func (c *Core) GetLatestRecommendations(ctx context.Context) ([]StoredRecommendation, error) {
	rows, err := c.QueryContext(ctx, `
		SELECT `+storedRecommendationColumns+`
		FROM recommendations
		WHERE id IN (SELECT MAX(id) FROM recommendations GROUP BY asset)
		ORDER BY asset
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStoredRecommendations(rows)
}

// GetRecommendationHistory returns up to limit stored recommendations for one
// asset, newest first. A non-positive limit means 50.
func (c *Core) GetRecommendationHistory(ctx context.Context, asset string, limit int) ([]StoredRecommendation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.QueryContext(ctx, `
		SELECT `+storedRecommendationColumns+`
		FROM recommendations
		WHERE asset = ?
		ORDER BY id DESC
		LIMIT ?
	`, asset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStoredRecommendations(rows)
}

func scanStoredRecommendations(rows *sql.Rows) ([]StoredRecommendation, error) {
	items := []StoredRecommendation{}
	for rows.Next() {
		var item StoredRecommendation
		var ticker, isin, reasoning, quantityReasoning, confidence sql.NullString
		var targetPrice, stopLoss sql.NullFloat64
		var missingFields, currency sql.NullString
		var allocationPct, positionValue, targetPosition sql.NullFloat64

		if err := rows.Scan(
			&item.ID, &item.Asset, &ticker, &isin, &item.Provider, &item.Model,
			&item.Result.Action, &item.Result.Quantity, &reasoning, &quantityReasoning, &confidence,
			&targetPrice, &stopLoss, &item.Result.ParseFailed, &missingFields,
			&allocationPct, &positionValue, &targetPosition, &currency, &item.CreatedAt,
		); err != nil {
			return nil, WrapError(ErrCodeDatabase, "failed to scan recommendation", err)
		}

		item.Ticker = ticker.String
		item.ISIN = isin.String
		item.Result.Reasoning = reasoning.String
		item.Result.QuantityReasoning = quantityReasoning.String
		item.Result.Confidence = confidence.String
		if targetPrice.Valid {
			v := targetPrice.Float64
			item.Result.TargetPrice = &v
		}
		if stopLoss.Valid {
			v := stopLoss.Float64
			item.Result.StopLoss = &v
		}
		if missingFields.Valid && missingFields.String != "" {
			if err := json.Unmarshal([]byte(missingFields.String), &item.Result.MissingFields); err != nil {
				return nil, WrapError(ErrCodeDatabase, "failed to decode missing fields", err)
			}
		}
		item.AllocationPct = allocationPct.Float64
		item.PositionValue = NewAmount(positionValue.Float64)
		item.TargetPosition = NewAmount(targetPosition.Float64)
		item.Currency = currency.String

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to iterate recommendations", err)
	}
	return items, nil
}

// SaveDebugSession persists one capture as a JSON payload. A nil session is a
// no-op.
func (c *Core) SaveDebugSession(ctx context.Context, session *DebugSession) error {
	if session == nil {
		return nil
	}
	payload, err := session.JSON()
	if err != nil {
		return WrapError(ErrCodeInternal, "failed to serialize debug session", err)
	}
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO debug_sessions (provider, model, payload) VALUES (?, ?, ?)
		`, session.Provider, session.Model, string(payload)); err != nil {
			return WrapError(ErrCodeDatabase, "failed to insert debug session", err)
		}
		return nil
	})
}

// GetLatestDebugSession returns the most recently stored capture, or a
// NOT_FOUND error when none exists.
func (c *Core) GetLatestDebugSession(ctx context.Context) (*DebugSession, error) {
	var payload string
	err := c.QueryRowContext(ctx, `
		SELECT payload FROM debug_sessions ORDER BY id DESC LIMIT 1
	`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, NewError(ErrCodeNotFound, "no debug session recorded")
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to load debug session", err)
	}

	var session DebugSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, WrapError(ErrCodeDatabase, "failed to decode debug session", err)
	}
	return &session, nil
}
