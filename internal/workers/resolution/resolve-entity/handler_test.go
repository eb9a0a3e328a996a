package resolveentity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-router/internal/common/database"
	"query-router/internal/common/errors"
	"query-router/internal/common/logger"
	"query-router/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		Timeout:  time.Second,
		CacheTTL: time.Minute,
	}
}

func stockBasicRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ts_code", "symbol", "name", "industry", "market", "list_status"}).
		AddRow("600519.SH", "600519", "贵州茅台", "白酒", "主板", "L").
		AddRow("000001.SZ", "000001", "平安银行", "银行", "主板", "L")
}

// ==========================
// Loader
// ==========================

func TestLoader_ReadThroughCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	loader := NewLoader(db, cache, time.Minute, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT ts_code, symbol, name.*FROM stock_basic`).WillReturnRows(stockBasicRows())

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.True(t, mr.Exists(IndexCacheKey))

	// Served from Redis: no further query expected.
	second, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, loader.Invalidate(context.Background()))
	assert.False(t, mr.Exists(IndexCacheKey))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM stock_basic`).WillReturnError(assert.AnError)

	loader := NewLoader(db, nil, time.Minute, logger.NewTestLogger(t))
	_, err = loader.Load(context.Background())
	assert.ErrorIs(t, err, ErrIndexLoadFailed)
}

// ==========================
// Handler
// ==========================

func TestHandler_RefreshAndExecute(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM stock_basic`).WillReturnRows(stockBasicRows())

	log := logger.NewTestLogger(t)
	h, err := NewHandler(createTestConfig(), NewResolver(nil), NewLoader(db, nil, time.Minute, log), log)
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &Input{Text: "贵州茅台"})
	require.NoError(t, err)
	require.NotNil(t, out.Error)
	assert.Equal(t, errors.ErrCodeEntityNotFound, out.Error.Code, "empty index before refresh")

	require.NoError(t, h.Refresh(context.Background(), true))

	tests := []struct {
		name           string
		input          *Input
		validateOutput func(t *testing.T, output *Output)
	}{
		{
			name:  "single",
			input: &Input{Text: "贵州茅台"},
			validateOutput: func(t *testing.T, output *Output) {
				require.Nil(t, output.Error)
				assert.Equal(t, "600519.SH", output.Entities[0].Code)
			},
		},
		{
			name:  "multiple",
			input: &Input{Text: "平安银行和贵州茅台", Multiple: true},
			validateOutput: func(t *testing.T, output *Output) {
				require.Nil(t, output.Error)
				require.Len(t, output.Entities, 2)
				assert.Equal(t, models.EntitySecurity, output.Entities[0].Kind)
				assert.Equal(t, "000001.SZ", output.Entities[0].Code)
			},
		},
		{
			name:  "short name from embedded table",
			input: &Input{Text: "茅台"},
			validateOutput: func(t *testing.T, output *Output) {
				require.NotNil(t, output.Error)
				assert.Equal(t, errors.ErrCodeEntityAmbiguousShortName, output.Error.Code)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_CancelledContext(t *testing.T) {
	h, err := NewHandler(createTestConfig(), NewResolver(nil), nil, logger.NewNoOpLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Execute(ctx, &Input{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Error(t, h.Refresh(context.Background(), false))
}

func TestLoadShortNames_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.yaml")
	require.NoError(t, os.WriteFile(path, []byte("short_names:\n  老板: 老板电器\n"), 0o600))

	names, err := LoadShortNames(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"老板": "老板电器"}, names)

	_, err = LoadShortNames(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
