// Package sqlite stores conversation history in a local SQLite file.
//
//	st, err := sqlite.NewSqliteStore(sqlite.SqliteOptions{Path: "./advisor.db"})
//	if err != nil {
//		return err
//	}
//	defer st.Close()
//
// Pass ":memory:" as the path for a throwaway database.
package sqlite
