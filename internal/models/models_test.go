package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stockyourlot/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSONAndScan(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-03-09"`, string(raw))

	var scanned Date
	require.NoError(t, scanned.Scan("2025-03-09T00:00:00Z"))
	assert.True(t, scanned.Equal(d))

	require.NoError(t, scanned.Scan(time.Date(2025, 3, 9, 17, 30, 0, 0, time.FixedZone("x", -5*3600))))
	assert.Equal(t, "2025-03-09", scanned.String())

	_, err = ParseDate("03/09/2025")
	assert.Error(t, err)
}

func TestDateMonthBounds(t *testing.T) {
	first, last := DateOf(2024, time.February, 17).MonthBounds()
	assert.Equal(t, "2024-02-01", first.String())
	assert.Equal(t, "2024-02-29", last.String())
}

func TestAssignmentCovers(t *testing.T) {
	end := DateOf(2025, 1, 31)
	a := IncentiveAssignment{StartDate: DateOf(2025, 1, 1), EndDate: &end, Status: constants.AssignmentStatusActive}

	assert.True(t, a.Covers(DateOf(2025, 1, 1)))
	assert.True(t, a.Covers(DateOf(2025, 1, 31)))
	assert.False(t, a.Covers(DateOf(2024, 12, 31)))
	assert.False(t, a.Covers(DateOf(2025, 2, 1)))

	a.EndDate = nil
	assert.True(t, a.Covers(DateOf(2030, 1, 1)))
}

func TestMoneyRoundsHalfUp(t *testing.T) {
	assert.Equal(t, "1000.00", MustMoney("999.9995").String())
	assert.Equal(t, "0.01", MustMoney("0.005").String())

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`19999.99`), &m))
	assert.Equal(t, "19999.99", m.String())
	require.NoError(t, json.Unmarshal([]byte(`"150"`), &m))
	assert.Equal(t, `"150.00"`, mustJSON(t, m))
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
