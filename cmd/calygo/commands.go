package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/calygofire/calygo"
)

const dateFormat = "2006-01-02"

type saleArgs struct {
	addressID     int
	amount        int64
	paymentMethod string
}

type visitArgs struct {
	addressID int
	status    calygo.AddressStatus
}

type tourneeArgs struct {
	name       string
	date       time.Time
	addressIDs []int
}

// parseSale parses "<addressID> <amount> <method>". The amount is in euros,
// e.g. "12" or "12.50", and returned in cents.
func parseSale(arg string) (saleArgs, error) {
	fields := strings.Fields(arg)
	if len(fields) != 3 {
		return saleArgs{}, fmt.Errorf("usage: /s <addressID> <amount> <method>")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return saleArgs{}, err
	}
	amount, err := parseAmount(fields[1])
	if err != nil {
		return saleArgs{}, err
	}
	return saleArgs{addressID: id, amount: amount, paymentMethod: fields[2]}, nil
}

// parseVisit parses "<addressID> <status>".
func parseVisit(arg string) (visitArgs, error) {
	fields := strings.Fields(arg)
	if len(fields) != 2 {
		return visitArgs{}, fmt.Errorf("usage: /v <addressID> <status>")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return visitArgs{}, err
	}
	status := calygo.AddressStatus(strings.ToLower(fields[1]))
	if !status.Valid() {
		return visitArgs{}, fmt.Errorf("unknown status %q", fields[1])
	}
	return visitArgs{addressID: id, status: status}, nil
}

// parseTournee parses "<name> <YYYY-MM-DD> <id,id,...>". The name may contain
// spaces; the last two fields are the date and the address list.
func parseTournee(arg string) (tourneeArgs, error) {
	fields := strings.Fields(arg)
	if len(fields) < 3 {
		return tourneeArgs{}, fmt.Errorf("usage: /t <name> <YYYY-MM-DD> <id,id,...>")
	}
	n := len(fields)
	date, err := time.ParseInLocation(dateFormat, fields[n-2], time.Local)
	if err != nil {
		return tourneeArgs{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", fields[n-2])
	}

	var ids []int
	for s := range strings.SplitSeq(fields[n-1], ",") {
		if s == "" {
			continue
		}
		id, err := parseID(s)
		if err != nil {
			return tourneeArgs{}, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return tourneeArgs{}, fmt.Errorf("no address ids given")
	}

	return tourneeArgs{
		name:       strings.Join(fields[:n-2], " "),
		date:       date,
		addressIDs: ids,
	}, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid address id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return int64(math.Round(f * 100)), nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d€", cents/100, cents%100)
}
