package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const (
	colScanTagID      = "tag_id"
	colScanBookID     = "book_id"
	colScanShelfID    = "shelf_id"
	colScanReaderID   = "reader_id"
	colScanMethod     = "scan_method"
	colScanScannedBy  = "scanned_by"
	colScanOccurredAt = "occurred_at"

	colTagTagID  = "tag_id"
	colTagBookID = "book_id"
	colTagActive = "active"

	colReaderID         = "id"
	colReaderShelfID    = "shelf_id"
	colReaderActive     = "active"
	colReaderScanCount  = "scan_count"
	colReaderLastScanAt = "last_scan_at"

	colShelfID      = "id"
	colShelfCode    = "code"
	colShelfZone    = "zone"
	colShelfSection = "section"

	logActionAppendScanEvent   = "append scan event"
	logActionLatestScanForBook = "latest scan for book"
	logActionActiveTagBinding  = "active tag binding"
	logActionShelfByID         = "shelf by id"
	logActionReaderShelfJoin   = "reader shelf join"
	logActionRecordReaderScan  = "record reader scan"

	sqlIncrementScanCount = "scan_count + 1"
)

// AppendScanEvent writes one location-history record. Implements location.History.
func (s *Store) AppendScanEvent(ctx context.Context, event presence.ScanEvent) error {
	var readerID any
	if event.ReaderID != nil {
		readerID = event.ReaderID.String()
	}

	row := goqu.Record{
		colScanTagID:      event.TagID,
		colScanBookID:     event.BookID.String(),
		colScanShelfID:    event.ShelfID.String(),
		colScanReaderID:   readerID,
		colScanMethod:     event.ScanMethod,
		colScanScannedBy:  event.ScannedBy.String(),
		colScanOccurredAt: event.OccurredAt,
	}

	sqlQuery, _, toSQLErr := s.builder().
		Insert(s.tables.LocationHistory).
		Rows(row).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	return s.executeStatement(ctx, logActionAppendScanEvent, sqlQuery)
}

// LatestScanForBook returns the most recent location-history record for a
// book, or nil when the book has none. Implements location.History.
func (s *Store) LatestScanForBook(ctx context.Context, bookID uuid.UUID) (*presence.ScanEvent, error) {
	sqlQuery, _, toSQLErr := s.builder().
		From(s.tables.LocationHistory).
		Select(
			colScanTagID, colScanBookID, colScanShelfID, colScanReaderID,
			colScanMethod, colScanScannedBy, colScanOccurredAt,
		).
		Where(goqu.Ex{colScanBookID: bookID.String()}).
		Order(goqu.I(colScanOccurredAt).Desc()).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, logActionLatestScanForBook, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return nil, nil
	}

	var (
		tagID       string
		rawBookID   string
		rawShelfID  string
		rawReaderID sql.NullString
		method      string
		rawScanner  string
		occurred    sql.NullTime
	)

	scanErr := rows.Scan(&tagID, &rawBookID, &rawShelfID, &rawReaderID, &method, &rawScanner, &occurred)
	if scanErr != nil {
		return nil, s.scanError(scanErr)
	}

	event := presence.ScanEvent{
		TagID:      tagID,
		ScanMethod: method,
		OccurredAt: occurred.Time,
	}

	var parseErr error

	if event.BookID, parseErr = uuid.Parse(rawBookID); parseErr != nil {
		return nil, s.scanError(parseErr)
	}

	if event.ShelfID, parseErr = uuid.Parse(rawShelfID); parseErr != nil {
		return nil, s.scanError(parseErr)
	}

	if event.ScannedBy, parseErr = uuid.Parse(rawScanner); parseErr != nil {
		return nil, s.scanError(parseErr)
	}

	if rawReaderID.Valid {
		readerID, readerParseErr := uuid.Parse(rawReaderID.String)
		if readerParseErr != nil {
			return nil, s.scanError(readerParseErr)
		}

		event.ReaderID = &readerID
	}

	return &event, nil
}

// ActiveTagBinding resolves an RFID tag to its book, returning nil for an
// unknown or inactive tag. Implements location.Catalog.
func (s *Store) ActiveTagBinding(ctx context.Context, tagID string) (*presence.TagBinding, error) {
	sqlQuery, _, toSQLErr := s.builder().
		From(s.tables.Tags).
		Select(colTagTagID, colTagBookID).
		Where(goqu.Ex{colTagTagID: tagID, colTagActive: true}).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, logActionActiveTagBinding, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return nil, nil
	}

	var (
		foundTagID string
		rawBookID  string
	)

	if scanErr := rows.Scan(&foundTagID, &rawBookID); scanErr != nil {
		return nil, s.scanError(scanErr)
	}

	bookID, parseErr := uuid.Parse(rawBookID)
	if parseErr != nil {
		return nil, s.scanError(parseErr)
	}

	return &presence.TagBinding{TagID: foundTagID, BookID: bookID, Active: true}, nil
}

// ShelfByID looks up one shelf, returning nil when it does not exist.
// Implements location.Catalog.
func (s *Store) ShelfByID(ctx context.Context, shelfID uuid.UUID) (*presence.ShelfLocation, error) {
	sqlQuery, _, toSQLErr := s.builder().
		From(s.tables.Shelves).
		Select(colShelfID, colShelfCode, colShelfZone, colShelfSection).
		Where(goqu.Ex{colShelfID: shelfID.String()}).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, logActionShelfByID, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return nil, nil
	}

	return s.scanShelfLocation(rows)
}

// ActiveReaderShelf resolves the reader-to-shelf join for an active reader,
// returning nil for an unknown or inactive reader. Implements location.Catalog.
func (s *Store) ActiveReaderShelf(ctx context.Context, readerID uuid.UUID) (*presence.ShelfLocation, error) {
	readers := goqu.T(s.tables.Readers)
	shelves := goqu.T(s.tables.Shelves)

	sqlQuery, _, toSQLErr := s.builder().
		From(readers).
		Join(shelves, goqu.On(shelves.Col(colShelfID).Eq(readers.Col(colReaderShelfID)))).
		Select(
			shelves.Col(colShelfID),
			shelves.Col(colShelfCode),
			shelves.Col(colShelfZone),
			shelves.Col(colShelfSection),
		).
		Where(goqu.And(
			readers.Col(colReaderID).Eq(readerID.String()),
			readers.Col(colReaderActive).IsTrue(),
		)).
		Limit(1).
		ToSQL()
	if toSQLErr != nil {
		return nil, errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, logActionReaderShelfJoin, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return nil, nil
	}

	return s.scanShelfLocation(rows)
}

// RecordReaderScan bumps a reader's scan counter and last-scan timestamp,
// health telemetry consumed outside this engine. Implements location.Catalog.
func (s *Store) RecordReaderScan(ctx context.Context, readerID uuid.UUID, scannedAt time.Time) error {
	sqlQuery, _, toSQLErr := s.builder().
		Update(s.tables.Readers).
		Set(goqu.Record{
			colReaderScanCount:  goqu.L(sqlIncrementScanCount),
			colReaderLastScanAt: scannedAt,
		}).
		Where(goqu.Ex{colReaderID: readerID.String()}).
		ToSQL()
	if toSQLErr != nil {
		return errors.Join(presence.ErrBuildingQueryFailed, toSQLErr)
	}

	return s.executeStatement(ctx, logActionRecordReaderScan, sqlQuery)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanShelfLocation(rows rowScanner) (*presence.ShelfLocation, error) {
	var (
		rawShelfID string
		code       string
		zone       sql.NullString
		section    sql.NullString
	)

	if scanErr := rows.Scan(&rawShelfID, &code, &zone, &section); scanErr != nil {
		return nil, s.scanError(scanErr)
	}

	shelfID, parseErr := uuid.Parse(rawShelfID)
	if parseErr != nil {
		return nil, s.scanError(parseErr)
	}

	return &presence.ShelfLocation{
		ShelfID:   shelfID,
		ShelfCode: code,
		Zone:      zone.String,
		Section:   section.String,
	}, nil
}
