package types

// ContextKey is the type used for values stored on a CLI context.
type ContextKey string

// DBKey carries the shared *sql.DB between CLI hooks and actions.
const DBKey ContextKey = "db"
