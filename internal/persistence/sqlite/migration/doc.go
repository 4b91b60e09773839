// Package migration opens SQLite databases for the portal store and applies
// the embedded schema migrations with goose.
//
// Migration files live in the migrations directory and follow goose's
// {version}_{description}.sql naming with "-- +goose Up" and
// "-- +goose Down" sections. goose records applied versions in its own
// goose_db_version table.
//
// Example usage:
//
//	db, err := migration.Open(ctx, migration.DefaultSQLiteConfig("portal.db"))
//	if err != nil {
//		return err
//	}
//	if err := migration.Up(ctx, db); err != nil {
//		return err
//	}
package migration
