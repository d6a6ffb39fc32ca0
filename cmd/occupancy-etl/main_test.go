package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/bed-occupancy-core/internal/etl"
	"github.com/JamesPrial/bed-occupancy-core/internal/storage"
	"github.com/JamesPrial/bed-occupancy-core/pkg/config"
	"github.com/JamesPrial/bed-occupancy-core/pkg/occupancy"
)

func TestRun_ImportsIntoSqlite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "beds.db")
	input := filepath.Join(dir, "occupancy.csv")
	require.NoError(t, os.WriteFile(input, []byte(
		"hospital_id,ward_id,bed_count,occupied_beds,record_date\n"+
			"hosp_001,icu_1,20,15,2025-09-26\n"+
			"hosp_001,icu_1,20,25,2025-09-27\n"), 0644))

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("databaseType: sqlite\nlogLevel: error\nsqlite:\n  path: "+dbPath+"\n"), 0644))

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-config", configPath, "-input", input}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	var result etl.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	assert.Equal(t, 2, result.RowsRead)
	assert.Equal(t, 1, result.Loaded)
	assert.Len(t, result.Rejected, 1)

	backend, err := storage.NewSqliteBackend(context.Background(), config.SqliteSettings{Path: dbPath})
	require.NoError(t, err)
	defer backend.Close()

	records, err := backend.Query(context.Background(), occupancy.Query{HospitalID: "hosp_001", WardID: "icu_1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRun_RequiresInput(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), nil, &bytes.Buffer{}, &stderr)
	assert.EqualError(t, err, "-input is required")
	assert.Contains(t, stderr.String(), "-input")
}
