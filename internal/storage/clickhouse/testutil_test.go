package clickhouse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// runMigrations applies the archive schema. It prefers the SQL files on disk
// and falls back to inline statements when they cannot be located.
func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	path := findSQLDir() + "/001_archive.sql"
	content, err := os.ReadFile(path)
	if err != nil {
		t.Logf("Could not read migration %s: %v, using inline migrations", path, err)
		runInlineMigrations(t, conn)
		return
	}

	// The driver doesn't support multiquery Exec, so statements run one
	// at a time.
	for _, stmt := range splitStatements(string(content)) {
		err = conn.Exec(ctx, stmt)
		require.NoError(t, err, "failed to apply migration statement")
	}
}

// findSQLDir attempts to locate the clickhouse migrations directory.
func findSQLDir() string {
	paths := []string{
		"../migrations/clickhouse",
		"../../../internal/storage/migrations/clickhouse",
		"internal/storage/migrations/clickhouse",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return "../migrations/clickhouse"
}

// splitStatements splits SQL content into individual statements by semicolon.
// Migration files must not contain semicolons inside string literals.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// runInlineMigrations applies the schema directly without reading files.
func runInlineMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trade_archive (
			wallet_address      String,
			mint                String,
			symbol              String,
			entry_time          Int64,
			entry_price_usd     Float64,
			entry_value_usd     Float64,
			entry_signature     String,
			exit_time           Int64,
			exit_price_usd      Float64,
			exit_value_usd      Float64,
			exit_signature      String,
			quantity            Float64,
			realized_pnl_usd    Float64,
			roi_percent         Float64,
			holding_days        Float64,
			zero_cost_basis     Bool,
			archived_at         DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (wallet_address, exit_time)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS swap_archive (
			signature           String,
			wallet_address      String,
			block_time          Int64,
			slot                Int64,
			token_in_mint       String,
			token_in_symbol     String,
			token_in_amount     Float64,
			token_out_mint      String,
			token_out_symbol    String,
			token_out_amount    Float64,
			fee_lamports        Int64,
			pool_id             String,
			swap_type           String,
			token_in_price_usd  Float64,
			token_out_price_usd Float64,
			token_in_value_usd  Float64,
			token_out_value_usd Float64,
			realized_pnl_usd    Float64,
			slippage_percent    Float64,
			fee_usd             Float64,
			archived_at         DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (wallet_address, block_time)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)
}
