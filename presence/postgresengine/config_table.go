package postgresengine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/openshelf/presence-engine/presence"
)

const (
	colConfigKey       = "key"
	colConfigValue     = "value"
	colConfigValueType = "value_type"
	colConfigUpdatedBy = "updated_by"
	colConfigUpdatedAt = "updated_at"

	logActionLoadConfig = "load configuration"
	logActionSaveConfig = "save configuration"
)

// LoadAllConfig reads the complete configuration set. Implements config.Backend.
func (s *Store) LoadAllConfig(ctx context.Context) ([]presence.ConfigEntry, error) {
	sqlQuery, _, toSQLErr := s.builder().
		From(s.tables.Configuration).
		Select(colConfigKey, colConfigValue, colConfigValueType, colConfigUpdatedBy, colConfigUpdatedAt).
		Order(goqu.I(colConfigKey).Asc()).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, logActionLoadConfig, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	entries := make([]presence.ConfigEntry, 0)

	for rows.Next() {
		var (
			key       string
			rawValue  string
			valueType string
			updatedBy sql.NullString
			updatedAt sql.NullTime
		)

		if scanErr := rows.Scan(&key, &rawValue, &valueType, &updatedBy, &updatedAt); scanErr != nil {
			return nil, s.scanError(scanErr)
		}

		entries = append(entries, presence.ConfigEntry{
			Key:       key,
			RawValue:  rawValue,
			ValueType: presence.ValueType(valueType),
			UpdatedBy: updatedBy.String,
			UpdatedAt: updatedAt.Time,
		})
	}

	return entries, nil
}

// SaveConfig upserts one configuration entry. Implements config.Backend.
func (s *Store) SaveConfig(ctx context.Context, entry presence.ConfigEntry) error {
	row := goqu.Record{
		colConfigKey:       entry.Key,
		colConfigValue:     entry.RawValue,
		colConfigValueType: string(entry.ValueType),
		colConfigUpdatedBy: entry.UpdatedBy,
		colConfigUpdatedAt: entry.UpdatedAt,
	}

	sqlQuery, _, toSQLErr := s.builder().
		Insert(s.tables.Configuration).
		Rows(row).
		OnConflict(goqu.DoUpdate(colConfigKey, goqu.Record{
			colConfigValue:     entry.RawValue,
			colConfigValueType: string(entry.ValueType),
			colConfigUpdatedBy: entry.UpdatedBy,
			colConfigUpdatedAt: entry.UpdatedAt,
		})).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	return s.executeStatement(ctx, logActionSaveConfig, sqlQuery)
}
