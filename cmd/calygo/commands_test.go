package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calygofire/calygo"
)

func TestParseSale(t *testing.T) {
	args, err := parseSale("12 12.50 cash")
	require.NoError(t, err)
	assert.Equal(t, saleArgs{addressID: 12, amount: 1250, paymentMethod: "cash"}, args)

	args, err = parseSale("3 10,2 check")
	require.NoError(t, err)
	assert.Equal(t, int64(1020), args.amount)

	for _, in := range []string{"", "12 10", "x 10 cash", "0 10 cash", "12 -1 cash", "12 abc cash", "12 NaN cash"} {
		_, err := parseSale(in)
		assert.Error(t, err, in)
	}
}

func TestParseVisit(t *testing.T) {
	args, err := parseVisit("4 Absent")
	require.NoError(t, err)
	assert.Equal(t, visitArgs{addressID: 4, status: calygo.StatusAbsent}, args)

	for _, in := range []string{"4", "4 maybe", "-4 sold"} {
		_, err := parseVisit(in)
		assert.Error(t, err, in)
	}
}

func TestParseTournee(t *testing.T) {
	args, err := parseTournee("Secteur nord 2025-12-01 3,1,2")
	require.NoError(t, err)
	assert.Equal(t, "Secteur nord", args.name)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.Local), args.date)
	assert.Equal(t, []int{3, 1, 2}, args.addressIDs)

	args, err = parseTournee("Sud 2025-12-02 5,")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, args.addressIDs)

	for _, in := range []string{"Sud 2025-12-02", "Sud 12/02/2025 1,2", "Sud 2025-12-02 1,x", "Sud 2025-12-02 ,"} {
		_, err := parseTournee(in)
		assert.Error(t, err, in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.50€", formatAmount(1250))
	assert.Equal(t, "0.05€", formatAmount(5))
}
